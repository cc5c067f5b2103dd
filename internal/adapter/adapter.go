// Package adapter implements the per-query scripting language contract:
// compile user source once, introspect the columns its scan function
// needs, hand it typed views of each requested partition, and serialize
// whatever it accumulates.
package adapter

import (
	"fmt"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/table"
)

// scanFnName is the well-known entry point every adapter source must define.
const scanFnName = "scan"

// Lang is implemented by every embedded scripting runtime tickdb can run a
// query in. A Lang is built fresh per query and discarded after Serialize.
type Lang interface {
	// RequiredColumns introspects the user's scan function against cols,
	// returning the ordered column names scan expects to be called with.
	// It errors if a referenced name doesn't exist in cols, or (for
	// adapters that can express one) if an annotated type disagrees with
	// the column's on-disk type.
	RequiredColumns(cols []schema.Column) ([]string, error)

	// ScanPartition invokes scan once with typed views of batch, in the
	// order RequiredColumns returned. The adapter keeps scan's return
	// value as its running accumulator, overwriting any prior one.
	ScanPartition(batch []*table.PartitionColumn) error

	// Serialize renders the current accumulator to UTF-8 bytes.
	Serialize() ([]byte, error)
}

// typeName is the short token adapters use in RequiredColumns annotations
// and error messages for each on-disk column type.
func typeName(t schema.ColumnType) string {
	switch t {
	case schema.Timestamp:
		return "ts"
	case schema.Symbol:
		return "symbol"
	case schema.I8:
		return "i8"
	case schema.U8:
		return "u8"
	case schema.I16:
		return "i16"
	case schema.U16:
		return "u16"
	case schema.I32:
		return "i32"
	case schema.U32:
		return "u32"
	case schema.F32:
		return "f32"
	case schema.I64:
		return "i64"
	case schema.U64:
		return "u64"
	case schema.F64:
		return "f64"
	default:
		return t.String()
	}
}

func columnIndexByName(cols []schema.Column) map[string]int {
	m := make(map[string]int, len(cols))
	for i, c := range cols {
		m[c.Name] = i
	}
	return m
}

// TypeMismatchError reports that an adapter-declared column type doesn't
// match the schema's on-disk type.
type TypeMismatchError struct {
	Column   string
	Expected schema.ColumnType
	Actual   schema.ColumnType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %q: expected %s, got %s", e.Column, typeName(e.Expected), typeName(e.Actual))
}

// UnknownColumnError reports that an adapter referenced a column absent
// from the table's schema.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column %q does not exist on this table", e.Column)
}
