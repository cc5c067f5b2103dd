package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/tstime"
)

// getPartitionBounds computes the inclusive [min,max] ts_bounds for the
// bucket containing ts under the schema's partition format.
func (t *Table) getPartitionBounds(ts int64) MinMax {
	if t.Schema.PartitionFmt == "" {
		return MinMax{Min: math.MinInt64, Max: math.MaxInt64}
	}
	tm := tstime.ToTime(ts)
	return MinMax{
		Min: tstime.PartitionMinTS(t.Schema.PartitionFmt, tm),
		Max: tstime.PartitionMaxTS(t.Schema.PartitionFmt, tm),
	}
}

// getPartition returns the index of the partition containing ts, creating
// one if none exists yet. A ts older than the matching partition's
// observed max is an ordering violation and panics.
func (t *Table) getPartition(ts int64) int {
	dir := PartitionDirPath(t.Schema, ts)
	for i, p := range t.Partitions {
		if p.Dir == dir {
			if ts < p.TsRange.Max {
				log.Error().Int64("ts", ts).Int64("prev", p.TsRange.Max).Str("table", t.Schema.Name).Msg("out of order write")
				panic(fmt.Sprintf("table: timestamp %d is out of order (previous %d)", ts, p.TsRange.Max))
			}
			return i
		}
	}

	if err := ensureDir(dir); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("cannot create partition dir")
		panic(fmt.Sprintf("table: cannot create partition dir %s: %v", dir, err))
	}
	t.Partitions = append(t.Partitions, &Partition{
		Dir:      dir,
		TsBounds: t.getPartitionBounds(ts),
		TsRange:  MinMax{Min: ts, Max: ts},
		RowCount: 0,
	})
	return len(t.Partitions) - 1
}

func (t *Table) openColumns() {
	for i := range t.Schema.Columns {
		if t.openFiles[i] != nil {
			t.openFiles[i].close()
		}
		f, err := t.openColumn(i)
		if err != nil {
			panic(err)
		}
		t.openFiles[i] = f
	}
}

func (t *Table) openColumn(i int) (*ColumnFile, error) {
	c := t.Schema.Columns[i]
	p := t.Partitions[t.partitionIndex]
	return openColumnFile(ColumnPath(p.Dir, c), p.RowCount, c.Stride)
}

// Put starts a new row by writing its timestamp (column 0), selecting or
// creating the owning partition and opening its column files if the
// active partition doesn't already bound ts. ts must be monotonically
// non-decreasing within and across partitions; violating that is fatal.
func (t *Table) Put(ts int64) {
	if t.partitionIndex < len(t.Partitions) {
		if prev := t.Partitions[t.partitionIndex].TsRange.Max; ts < prev {
			log.Error().Int64("ts", ts).Int64("prev", prev).Str("table", t.Schema.Name).Msg("out of order write")
			panic(fmt.Sprintf("table: timestamp %d is out of order (previous %d)", ts, prev))
		}
	}
	active := len(t.Partitions) > 0 && t.openFiles[0] != nil && t.partitionIndex < len(t.Partitions)
	if active {
		bounds := t.Partitions[t.partitionIndex].TsBounds
		active = ts >= bounds.Min && ts <= bounds.Max
	}
	if !active {
		t.partitionIndex = t.getPartition(ts)
		t.openColumns()
	}

	p := t.Partitions[t.partitionIndex]
	stride0 := t.Schema.Columns[0].Stride
	if len(t.openFiles[0].data) <= p.RowCount*stride0 {
		t.growActivePartition()
	}

	p.TsRange.Max = ts
	t.putBytes(int64ToBytes(ts))
}

func (t *Table) growActivePartition() {
	for _, f := range t.openFiles {
		if err := f.grow(); err != nil {
			panic(err)
		}
	}
}

// PutSymbol interns val into column_index's dictionary and writes its
// 1-based index. Panics if the current column is not a Symbol column.
func (t *Table) PutSymbol(val string) {
	c := t.Schema.Columns[t.columnIndex]
	if c.Type != schema.Symbol {
		log.Error().Str("column", c.Name).Str("value", val).Msg("PutSymbol on non-symbol column")
		panic(fmt.Sprintf("table: cannot PutSymbol(%q) on non-symbol column %q", val, c.Name))
	}
	d := t.dicts[t.columnIndex]
	idx, err := d.Intern(val)
	if err != nil {
		panic(err)
	}
	t.putBytes(uint64ToBytes(idx))
}

func (t *Table) putBytes(b []byte) {
	p := t.Partitions[t.partitionIndex]
	c := t.Schema.Columns[t.columnIndex]
	offset := p.RowCount * c.Stride
	f := t.openFiles[t.columnIndex]
	copy(f.data[offset:offset+len(b)], b)

	t.columnIndex++
	if t.columnIndex == len(t.Schema.Columns) {
		t.columnIndex = 0
		p.RowCount++
	}
}

func (t *Table) checkType(want schema.ColumnType) {
	c := t.Schema.Columns[t.columnIndex]
	if c.Type != want {
		log.Error().Str("column", c.Name).Str("have", c.Type.String()).Str("want", want.String()).Msg("column type mismatch")
		panic(fmt.Sprintf("table: column %q is %v, cannot write %v", c.Name, c.Type, want))
	}
}

func (t *Table) PutI8(v int8) { t.checkType(schema.I8); t.putBytes([]byte{byte(v)}) }
func (t *Table) PutU8(v uint8) { t.checkType(schema.U8); t.putBytes([]byte{v}) }

func (t *Table) PutI16(v int16) {
	t.checkType(schema.I16)
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	t.putBytes(b)
}

func (t *Table) PutU16(v uint16) {
	t.checkType(schema.U16)
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	t.putBytes(b)
}

func (t *Table) PutI32(v int32) {
	t.checkType(schema.I32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	t.putBytes(b)
}

func (t *Table) PutU32(v uint32) {
	t.checkType(schema.U32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	t.putBytes(b)
}

func (t *Table) PutF32(v float32) {
	t.checkType(schema.F32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	t.putBytes(b)
}

func (t *Table) PutI64(v int64) {
	t.checkType(schema.I64)
	t.putBytes(int64ToBytes(v))
}

func (t *Table) PutU64(v uint64) {
	t.checkType(schema.U64)
	t.putBytes(uint64ToBytes(v))
}

func (t *Table) PutF64(v float64) {
	t.checkType(schema.F64)
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	t.putBytes(b)
}

// Flush msyncs every mapped column, truncates each to stride*row_count,
// and rewrites the meta file.
func (t *Table) Flush() error {
	if t.partitionIndex >= len(t.Partitions) {
		return nil
	}
	p := t.Partitions[t.partitionIndex]
	for i, f := range t.openFiles {
		if f == nil {
			continue
		}
		if err := f.flush(t.Schema.Columns[i].Stride, p.RowCount); err != nil {
			return err
		}
	}
	return t.writeMeta()
}

func int64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
