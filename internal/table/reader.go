package table

import (
	"fmt"
	"unsafe"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/symbol"
)

// PartitionColumn is a typed byte slice covering a contiguous row range of
// one column within one partition. The slice aliases the mmap region
// owned by the PartitionIter that produced it — it must not be used after
// that iterator is closed.
type PartitionColumn struct {
	Column    *schema.Column
	Slice     []byte
	Partition *Partition
	RowCount  int

	dict *symbol.Dictionary
}

func reinterpret[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

func (c *PartitionColumn) AsI8() []int8     { return reinterpret[int8](c.Slice) }
func (c *PartitionColumn) AsU8() []uint8    { return reinterpret[uint8](c.Slice) }
func (c *PartitionColumn) AsI16() []int16   { return reinterpret[int16](c.Slice) }
func (c *PartitionColumn) AsU16() []uint16  { return reinterpret[uint16](c.Slice) }
func (c *PartitionColumn) AsI32() []int32   { return reinterpret[int32](c.Slice) }
func (c *PartitionColumn) AsU32() []uint32  { return reinterpret[uint32](c.Slice) }
func (c *PartitionColumn) AsF32() []float32 { return reinterpret[float32](c.Slice) }
func (c *PartitionColumn) AsI64() []int64   { return reinterpret[int64](c.Slice) }
func (c *PartitionColumn) AsU64() []uint64  { return reinterpret[uint64](c.Slice) } // also Symbol indices
func (c *PartitionColumn) AsF64() []float64 { return reinterpret[float64](c.Slice) }

// Strings materializes a Symbol column's dictionary indices into their
// string values. Cost is O(row_count * avg_string_len) and must not be
// mixed into a zero-copy throughput metric — see DESIGN NOTES in SPEC_FULL.md.
func (c *PartitionColumn) Strings() []string {
	idxs := c.AsU64()
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = c.dict.Resolve(idx)
	}
	return out
}

// resolveColumns maps requested column names to their schema.Column,
// erroring if any name doesn't exist on the table.
func (t *Table) resolveColumns(names []string) ([]schema.Column, error) {
	cols := make([]schema.Column, 0, len(names))
	for _, name := range names {
		idx := t.Schema.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("column %s does not exist on table %s", name, t.Schema.Name)
		}
		cols = append(cols, t.Schema.Columns[idx])
	}
	return cols, nil
}

// PartitionIter is a lazy, pull-based, non-restartable sequence of
// partition batches over [fromTS, toTS], inclusive.
type PartitionIter struct {
	table   *Table
	columns []schema.Column

	fromTS, toTS int64
	partitions   []*Partition
	index        int

	// openFiles keeps every ColumnFile opened during this traversal alive
	// so previously-yielded batches' slices remain valid mmap views.
	openFiles []*ColumnFile
}

// PartitionIter opens a range-pruned, timestamp-bounded iterator over the
// requested columns. A partition p is selected iff [fromTS,toTS]
// intersects p.TsRange.
func (t *Table) PartitionIter(fromTS, toTS int64, columnNames []string) (*PartitionIter, error) {
	if toTS < fromTS {
		return nil, fmt.Errorf("table: to (%d) must be >= from (%d)", toTS, fromTS)
	}
	cols, err := t.resolveColumns(columnNames)
	if err != nil {
		return nil, err
	}

	selected := make([]*Partition, 0, len(t.Partitions))
	for _, p := range t.Partitions {
		if fromTS <= p.TsRange.Max && toTS >= p.TsRange.Min {
			selected = append(selected, p)
		}
	}

	return &PartitionIter{
		table:      t,
		columns:    cols,
		fromTS:     fromTS,
		toTS:       toTS,
		partitions: selected,
	}, nil
}

// binarySearchSeek finds, in an ascending (possibly duplicate-containing)
// slice, the leftmost index whose value equals needle (seekStart) or one
// past the rightmost such index (!seekStart). When needle isn't present,
// both modes return the insertion point (which may equal len(haystack)).
func binarySearchSeek(haystack []int64, needle int64, seekStart bool) int {
	lo, hi := 0, len(haystack)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if haystack[mid] < needle {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == len(haystack) || haystack[lo] != needle {
		return lo
	}
	if seekStart {
		return lo
	}
	for lo < len(haystack) && haystack[lo] == needle {
		lo++
	}
	return lo
}

func findTS(tsFile *ColumnFile, rowCount int, needle int64, seekStart bool) int {
	data := reinterpret[int64](tsFile.data[:rowCount*8])
	return binarySearchSeek(data, needle, seekStart)
}

// Next yields the next partition's batch, or (nil, nil) once the
// traversal is exhausted.
func (it *PartitionIter) Next() ([]*PartitionColumn, error) {
	if it.index >= len(it.partitions) {
		return nil, nil
	}
	p := it.partitions[it.index]

	startRow := 0
	if it.index == 0 {
		tsFile, err := openColumnFile(ColumnPath(p.Dir, it.table.Schema.Columns[0]), p.RowCount, it.table.Schema.Columns[0].Stride)
		if err != nil {
			return nil, err
		}
		it.openFiles = append(it.openFiles, tsFile)
		startRow = findTS(tsFile, p.RowCount, it.fromTS, true)
	}

	endRow := p.RowCount
	if it.index == len(it.partitions)-1 {
		tsFile, err := openColumnFile(ColumnPath(p.Dir, it.table.Schema.Columns[0]), p.RowCount, it.table.Schema.Columns[0].Stride)
		if err != nil {
			return nil, err
		}
		it.openFiles = append(it.openFiles, tsFile)
		endRow = findTS(tsFile, p.RowCount, it.toTS, false)
	}

	rowCount := endRow - startRow
	batch := make([]*PartitionColumn, 0, len(it.columns))
	for i := range it.columns {
		col := it.columns[i]
		cf, err := openColumnFile(ColumnPath(p.Dir, col), p.RowCount, col.Stride)
		if err != nil {
			return nil, err
		}
		it.openFiles = append(it.openFiles, cf)

		byteOffset := startRow * col.Stride
		byteLen := rowCount * col.Stride
		slice := cf.data[byteOffset : byteOffset+byteLen]

		pc := &PartitionColumn{
			Column:    &it.columns[i],
			Slice:     slice,
			Partition: p,
			RowCount:  rowCount,
		}
		if col.Type == schema.Symbol {
			pc.dict = it.table.Dictionary(col.Name)
		}
		batch = append(batch, pc)
	}

	it.index++
	return batch, nil
}

// Close unmaps every ColumnFile opened during this traversal. After Close,
// slices from previously-yielded batches are no longer valid.
func (it *PartitionIter) Close() error {
	var firstErr error
	for _, f := range it.openFiles {
		if err := f.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	it.openFiles = nil
	return firstErr
}
