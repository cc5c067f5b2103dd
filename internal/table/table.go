// Package table implements the append-only, timestamp-ordered columnar
// storage engine: schemas backed by mmap'd column files, JSON metadata,
// ordered writers, and range-pruned partition iteration.
package table

import (
	"fmt"
	"os"
	"sort"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/symbol"
)

// MinMax is an inclusive [Min, Max] range of nanosecond timestamps.
type MinMax struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Partition is a directory of per-column files covering a contiguous
// timestamp range implied by the schema's partition format.
//
// TsBounds are the inclusive bounds the partition *may* contain given its
// format; TsRange are the observed min/max actually written.
type Partition struct {
	Dir       string `json:"dir"`
	TsRange   MinMax `json:"ts_range"`
	TsBounds  MinMax `json:"ts_bounds"`
	RowCount  int    `json:"row_count"`
}

// Table is a schema plus its sorted partition list, along with the
// runtime-only state needed to serve writes and reads: open column files
// and symbol dictionaries for the active partition, and the in-flight
// write cursor (columnIndex, partitionIndex).
type Table struct {
	Schema     *schema.Schema
	Partitions []*Partition

	metaPath string

	columnIndex    int
	partitionIndex int

	// openFiles[i] is the open ColumnFile for Schema.Columns[i] in the
	// active partition (partitionIndex), or nil if not yet opened.
	openFiles []*ColumnFile

	// dicts[i] is the symbol dictionary for Schema.Columns[i], loaded
	// once at Create/Open time; nil unless that column is a Symbol column.
	dicts []*symbol.Dictionary
}

// Create makes a brand-new table on disk: if the data directory for this
// schema's name holds a _meta file, it removes that directory first; a
// directory without a _meta file is reused as is. It then creates the
// directory if needed and writes the initial (empty-partitions) meta file.
func Create(s *schema.Schema) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	dataPath := DataPath(s.Name)
	metaPath := MetaPath(s.Name)

	if _, err := os.Stat(metaPath); err == nil {
		if err := os.RemoveAll(dataPath); err != nil {
			return nil, fmt.Errorf("table: could not remove existing data dir %s: %w", dataPath, err)
		}
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("table: could not create data dir %s: %w", dataPath, err)
	}

	t := &Table{
		Schema:    s,
		metaPath:  metaPath,
		openFiles: make([]*ColumnFile, len(s.Columns)),
		dicts:     make([]*symbol.Dictionary, len(s.Columns)),
	}
	if err := t.openSymbolDictionaries(true); err != nil {
		return nil, err
	}
	if err := t.writeMeta(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open reads an existing table's meta file and rehydrates its symbol
// dictionaries.
func Open(name string) (*Table, error) {
	metaPath := MetaPath(name)
	t, err := readMeta(name, metaPath)
	if err != nil {
		return nil, fmt.Errorf("table: could not open table %s: %w", name, err)
	}
	t.metaPath = metaPath
	t.openFiles = make([]*ColumnFile, len(t.Schema.Columns))
	t.dicts = make([]*symbol.Dictionary, len(t.Schema.Columns))
	if err := t.openSymbolDictionaries(true); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateOrOpen creates the table if it doesn't exist yet, otherwise opens
// the existing one (ignoring the given schema).
func CreateOrOpen(s *schema.Schema) (*Table, error) {
	if _, err := os.Stat(MetaPath(s.Name)); err == nil {
		return Open(s.Name)
	}
	return Create(s)
}

func (t *Table) openSymbolDictionaries(write bool) error {
	for i, c := range t.Schema.Columns {
		if c.Type != schema.Symbol {
			continue
		}
		d, err := symbol.Open(SymbolsPath(t.Schema.Name, c), write)
		if err != nil {
			return err
		}
		t.dicts[i] = d
	}
	return nil
}

// Dictionary returns the symbol dictionary for the named column, or nil if
// that column is not a Symbol column.
func (t *Table) Dictionary(colName string) *symbol.Dictionary {
	idx := t.Schema.ColumnIndex(colName)
	if idx < 0 {
		return nil
	}
	return t.dicts[idx]
}

// FirstTS returns the minimum observed timestamp in the table, if any rows
// have been written.
func (t *Table) FirstTS() (int64, bool) {
	if len(t.Partitions) == 0 {
		return 0, false
	}
	return t.Partitions[0].TsRange.Min, true
}

// LastTS returns the maximum observed timestamp in the table, if any rows
// have been written.
func (t *Table) LastTS() (int64, bool) {
	if len(t.Partitions) == 0 {
		return 0, false
	}
	return t.Partitions[len(t.Partitions)-1].TsRange.Max, true
}

func (t *Table) sortPartitions() {
	sort.Slice(t.Partitions, func(i, j int) bool {
		return t.Partitions[i].TsBounds.Min < t.Partitions[j].TsBounds.Min
	})
}

// Close releases all open column file mappings and symbol dictionary
// handles. It does not flush — callers that have written data must call
// Flush first.
func (t *Table) Close() error {
	var firstErr error
	for _, f := range t.openFiles {
		if f == nil {
			continue
		}
		if err := f.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, d := range t.dicts {
		if d == nil {
			continue
		}
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
