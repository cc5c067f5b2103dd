package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickingbuttons/tickdb/internal/schema"
)

func newTestSchema(name, partitionFmt string) *schema.Schema {
	s := schema.New(name, partitionFmt)
	s.AddColumns(
		schema.NewColumn("price", schema.F64),
		schema.NewColumn("size", schema.U32),
		schema.NewColumn("side", schema.Symbol),
	)
	return s
}

func dayNanos(day int) int64 {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC).UnixNano()
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)

	rows := []struct {
		ts    int64
		price float64
		size  uint32
		side  string
	}{
		{dayNanos(1), 100.5, 10, "buy"},
		{dayNanos(1), 100.6, 20, "sell"},
		{dayNanos(2), 101.0, 5, "buy"},
	}
	for _, r := range rows {
		w.Put(r.ts)
		w.PutF64(r.price)
		w.PutU32(r.size)
		w.PutSymbol(r.side)
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	rt, err := Open("trades")
	require.NoError(t, err)
	defer rt.Close()

	assert.Len(t, rt.Partitions, 2)
	first, ok := rt.FirstTS()
	require.True(t, ok)
	assert.Equal(t, dayNanos(1), first)
	last, ok := rt.LastTS()
	require.True(t, ok)
	assert.Equal(t, dayNanos(2), last)

	iter, err := rt.PartitionIter(dayNanos(1), dayNanos(2), []string{"ts", "price", "size", "side"})
	require.NoError(t, err)
	defer iter.Close()

	var gotPrices []float64
	var gotSides []string
	for {
		batch, err := iter.Next()
		require.NoError(t, err)
		if batch == nil {
			break
		}
		for _, pc := range batch {
			switch pc.Column.Name {
			case "price":
				gotPrices = append(gotPrices, pc.AsF64()...)
			case "side":
				gotSides = append(gotSides, pc.Strings()...)
			}
		}
	}

	assert.Equal(t, []float64{100.5, 100.6, 101.0}, gotPrices)
	assert.Equal(t, []string{"buy", "sell", "buy"}, gotSides)
}

func TestPartitionIterRangePruning(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)

	for day := 1; day <= 5; day++ {
		w.Put(dayNanos(day))
		w.PutF64(float64(day))
		w.PutU32(1)
		w.PutSymbol("buy")
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	rt, err := Open("trades")
	require.NoError(t, err)
	defer rt.Close()

	iter, err := rt.PartitionIter(dayNanos(2), dayNanos(3), []string{"ts", "price"})
	require.NoError(t, err)
	defer iter.Close()

	var seenDays []float64
	for {
		batch, err := iter.Next()
		require.NoError(t, err)
		if batch == nil {
			break
		}
		for _, pc := range batch {
			if pc.Column.Name == "price" {
				seenDays = append(seenDays, pc.AsF64()...)
			}
		}
	}
	assert.Equal(t, []float64{2, 3}, seenDays)
}

func TestPartitionIterInvalidRange(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.PartitionIter(dayNanos(5), dayNanos(1), []string{"ts"})
	assert.Error(t, err)
}

func TestPartitionIterUnknownColumn(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.PartitionIter(dayNanos(1), dayNanos(1), []string{"nonexistent"})
	assert.Error(t, err)
}

func TestOutOfOrderWritePanics(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)
	defer w.Close()

	w.Put(dayNanos(1))
	w.PutF64(1)
	w.PutU32(1)
	w.PutSymbol("buy")

	assert.Panics(t, func() {
		w.Put(dayNanos(1) - int64(time.Hour))
		w.PutF64(1)
		w.PutU32(1)
		w.PutSymbol("buy")
	})
}

func TestPutTypeMismatchPanics(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)
	defer w.Close()

	w.Put(dayNanos(1))
	assert.Panics(t, func() {
		w.PutU32(5) // price column is F64
	})
}

func TestPutSymbolOnNonSymbolColumnPanics(t *testing.T) {
	t.Setenv("TICKDB_HOME", t.TempDir())

	s := newTestSchema("trades", "%Y-%m-%d")
	w, err := Create(s)
	require.NoError(t, err)
	defer w.Close()

	w.Put(dayNanos(1))
	assert.Panics(t, func() {
		w.PutSymbol("buy") // price column is F64, not Symbol
	})
}
