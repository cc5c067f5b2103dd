// Package schema declares the column types and table schemas used by the
// storage engine: fixed-width scalar kinds, their on-disk stride, and the
// ordered column list a table is created with.
package schema

import "fmt"

// ColumnType is a fixed-width scalar kind. Timestamp and Symbol both store
// as 8-byte little-endian integers; Symbol values are 1-based dictionary
// indices into a SymbolDictionary.
type ColumnType int

const (
	Timestamp ColumnType = iota
	Symbol
	I8
	U8
	I16
	U16
	I32
	U32
	F32
	I64
	U64
	F64
)

var typeNames = map[ColumnType]string{
	Timestamp: "timestamp",
	Symbol:    "symbol",
	I8:        "i8",
	U8:        "u8",
	I16:       "i16",
	U16:       "u16",
	I32:       "i32",
	U32:       "u32",
	F32:       "f32",
	I64:       "i64",
	U64:       "u64",
	F64:       "f64",
}

// String returns the lowercase name used as a column file extension.
func (t ColumnType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("columntype(%d)", int(t))
}

// Stride returns the fixed byte width of one value of this type.
func (t ColumnType) Stride() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case Timestamp, Symbol, I64, U64, F64:
		return 8
	default:
		panic(fmt.Sprintf("schema: unknown column type %v", t))
	}
}

// Column describes one table column: its name, on-disk type, and stride.
// At runtime a Column may carry an open file handle (table package) and,
// for Symbol columns, a dictionary (symbol package) — those live outside
// this package to keep schema free of I/O.
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Stride int        `json:"stride"`
}

// NewColumn builds a Column with its stride derived from type.
func NewColumn(name string, t ColumnType) Column {
	return Column{Name: name, Type: t, Stride: t.Stride()}
}

// Schema is a named, ordered column list plus a strftime-like partition
// format. The first column is always ("ts", Timestamp).
type Schema struct {
	Name         string   `json:"-"` // derived from the parent directory, not stored
	Columns      []Column `json:"columns"`
	PartitionFmt string   `json:"partition_fmt"`
}

// New creates a schema with the mandatory leading ts column already present.
func New(name, partitionFmt string) *Schema {
	return &Schema{
		Name:         name,
		PartitionFmt: partitionFmt,
		Columns:      []Column{NewColumn("ts", Timestamp)},
	}
}

// AddColumn appends a user column, panicking on a duplicate name — schemas
// are built once at table-creation time, so this is a programmer error,
// not a runtime condition.
func (s *Schema) AddColumn(c Column) *Schema {
	for _, existing := range s.Columns {
		if existing.Name == c.Name {
			panic(fmt.Sprintf("schema: duplicate column name %q", c.Name))
		}
	}
	s.Columns = append(s.Columns, c)
	return s
}

// AddColumns appends several columns in order.
func (s *Schema) AddColumns(cols ...Column) *Schema {
	for _, c := range cols {
		s.AddColumn(c)
	}
	return s
}

// ColumnIndex returns the index of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the invariant that columns[0] is ("ts", Timestamp).
func (s *Schema) Validate() error {
	if len(s.Columns) == 0 || s.Columns[0].Name != "ts" || s.Columns[0].Type != Timestamp {
		return fmt.Errorf("schema: first column must be (ts, Timestamp)")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return fmt.Errorf("schema: duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
