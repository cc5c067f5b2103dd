package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnTypeStride(t *testing.T) {
	cases := []struct {
		t      ColumnType
		stride int
	}{
		{I8, 1}, {U8, 1},
		{I16, 2}, {U16, 2},
		{I32, 4}, {U32, 4}, {F32, 4},
		{Timestamp, 8}, {Symbol, 8}, {I64, 8}, {U64, 8}, {F64, 8},
	}
	for _, c := range cases {
		assert.Equal(t, c.stride, c.t.Stride(), "stride of %v", c.t)
	}
}

func TestColumnTypeStrideUnknown(t *testing.T) {
	assert.Panics(t, func() {
		ColumnType(999).Stride()
	})
}

func TestColumnTypeString(t *testing.T) {
	assert.Equal(t, "timestamp", Timestamp.String())
	assert.Equal(t, "f64", F64.String())
	assert.Contains(t, ColumnType(999).String(), "columntype")
}

func TestNewSchemaHasLeadingTsColumn(t *testing.T) {
	s := New("trades", "%Y/%m-%d")

	assert.Len(t, s.Columns, 1)
	assert.Equal(t, "ts", s.Columns[0].Name)
	assert.Equal(t, Timestamp, s.Columns[0].Type)
	assert.Equal(t, 8, s.Columns[0].Stride)
}

func TestAddColumns(t *testing.T) {
	s := New("trades", "%Y/%m-%d")
	s.AddColumns(
		NewColumn("price", F64),
		NewColumn("size", U32),
		NewColumn("side", Symbol),
	)

	assert.Len(t, s.Columns, 4)
	assert.Equal(t, 1, s.ColumnIndex("price"))
	assert.Equal(t, 3, s.ColumnIndex("side"))
	assert.Equal(t, -1, s.ColumnIndex("missing"))
}

func TestAddColumnDuplicatePanics(t *testing.T) {
	s := New("trades", "%Y")
	s.AddColumn(NewColumn("price", F64))

	assert.PanicsWithValue(t, `schema: duplicate column name "price"`, func() {
		s.AddColumn(NewColumn("price", F32))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid schema passes", func(t *testing.T) {
		s := New("trades", "%Y")
		s.AddColumn(NewColumn("price", F64))
		assert.NoError(t, s.Validate())
	})

	t.Run("missing leading ts column fails", func(t *testing.T) {
		s := &Schema{Columns: []Column{NewColumn("price", F64)}}
		assert.Error(t, s.Validate())
	})

	t.Run("duplicate column name fails", func(t *testing.T) {
		s := &Schema{Columns: []Column{
			NewColumn("ts", Timestamp),
			NewColumn("price", F64),
			NewColumn("price", F64),
		}}
		assert.Error(t, s.Validate())
	})

	t.Run("empty schema fails", func(t *testing.T) {
		s := &Schema{}
		assert.Error(t, s.Validate())
	})
}
