package table

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// defaultRows is the minimum row capacity a column file is pre-sized to,
// so small tables don't pay for a remap on every batch of writes.
const defaultRows = 1_000_000

// ColumnFile is a file-backed, growable, memory-mapped byte region for one
// column of one partition.
type ColumnFile struct {
	file *os.File
	data mmap.MMap
}

// openColumnFile opens (creating if necessary) the file at path, sizes it
// to max(rowCount, defaultRows)*stride, and maps it read/write. Failure to
// open, truncate, or map is treated as fatal by callers (writer path) or
// surfaced as an I/O error (read path).
func openColumnFile(path string, rowCount, stride int) (*ColumnFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("table: could not open column file %s: %w", path, err)
	}

	initSize := rowCount
	if initSize < defaultRows {
		initSize = defaultRows
	}
	initSize *= stride

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table: could not stat %s: %w", path, err)
	}
	if int(info.Size()) < initSize {
		if err := f.Truncate(int64(initSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("table: could not truncate %s to %d: %w", path, initSize, err)
		}
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table: could not mmap %s: %w", path, err)
	}

	return &ColumnFile{file: f, data: m}, nil
}

// grow doubles the mapped capacity: unmap, truncate the file up, remap.
// Failure at any step is fatal — the caller is expected to panic, since
// growth is only triggered mid-write and there is no way to make progress
// without it.
func (cf *ColumnFile) grow() error {
	newSize := len(cf.data) * 2
	if newSize == 0 {
		newSize = defaultRows
	}
	if err := cf.data.Unmap(); err != nil {
		return fmt.Errorf("table: could not unmap %s before growing: %w", cf.file.Name(), err)
	}
	if err := cf.file.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("table: could not truncate %s to %d: %w", cf.file.Name(), newSize, err)
	}
	m, err := mmap.Map(cf.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("table: could not remap %s after growing: %w", cf.file.Name(), err)
	}
	cf.data = m
	return nil
}

// flush msyncs the mapping then truncates the file to exactly
// stride*rowCount, freeing any tail slack left over from doubling.
func (cf *ColumnFile) flush(stride, rowCount int) error {
	if err := cf.data.Flush(); err != nil {
		return fmt.Errorf("table: could not flush %s: %w", cf.file.Name(), err)
	}
	size := int64(stride * rowCount)
	if err := cf.file.Truncate(size); err != nil {
		return fmt.Errorf("table: could not truncate %s to %d: %w", cf.file.Name(), size, err)
	}
	return nil
}

func (cf *ColumnFile) close() error {
	if err := cf.data.Unmap(); err != nil {
		return err
	}
	return cf.file.Close()
}
