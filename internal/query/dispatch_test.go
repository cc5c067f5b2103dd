package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickingbuttons/tickdb/internal/registry"
	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/table"
)

// seedTable creates a "trades" table with one Symbol column ("side") under
// home/data, populated with rows spanning two days. Symbol columns are
// scanned as plain JS string arrays, which keeps these dispatch tests clear
// of goja's TypedArray/ArrayBuffer construction path (see DESIGN.md).
func seedTable(t *testing.T, home string) {
	t.Helper()
	t.Setenv("TICKDB_HOME", home)

	s := schema.New("trades", "%Y-%m-%d")
	s.AddColumn(schema.NewColumn("side", schema.Symbol))
	tbl, err := table.Create(s)
	require.NoError(t, err)

	day := func(d int) int64 {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC).UnixNano()
	}
	sides := []struct {
		ts   int64
		side string
	}{
		{day(1), "buy"},
		{day(1), "sell"},
		{day(2), "buy"},
	}
	for _, r := range sides {
		tbl.Put(r.ts)
		tbl.PutSymbol(r.side)
	}
	require.NoError(t, tbl.Flush())
	require.NoError(t, tbl.Close())
}

func jsonRaw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return json.RawMessage(b)
}

func TestDispatchHappyPath(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan(side) { return JSON.stringify(side.length); }",
		},
	}

	out, stats, dispatchErr := Dispatch(reg, req)
	require.Nil(t, dispatchErr)
	// scan's accumulator is overwritten each partition; the last partition
	// iterated (2024-01-02) has a single row.
	assert.Equal(t, "1", string(out))
	assert.Equal(t, uint64(3), stats.Rows)
	assert.Greater(t, stats.BytesRead, uint64(0))
}

func TestDispatchUnsupportedLanguage(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Lang:  "Python",
		Source: Source{
			Path: "q.py",
			Text: "def scan(side): return len(side)",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 422, dispatchErr.Status)
}

func TestDispatchUnknownTable(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "does_not_exist",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan(side) { return 1; }",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 404, dispatchErr.Status)
}

func TestDispatchUnknownColumn(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan(bogus) { return 1; }",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 422, dispatchErr.Status)
}

func TestDispatchNoColumnsDeclared(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan() { return 1; }",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 422, dispatchErr.Status)
}

func TestDispatchBadTimestamp(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "not a date"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan(side) { return 1; }",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 400, dispatchErr.Status)
}

func TestDispatchScriptCompileError(t *testing.T) {
	home := t.TempDir()
	seedTable(t, home)
	reg, err := registry.Load(home)
	require.NoError(t, err)

	req := &Request{
		Table: "trades",
		From:  jsonRaw(t, "2024-01-01"),
		To:    jsonRaw(t, "2024-01-03"),
		Source: Source{
			Path: "q.js",
			Text: "function scan(side { return 1; }",
		},
	}

	_, _, dispatchErr := Dispatch(reg, req)
	require.NotNil(t, dispatchErr)
	assert.Equal(t, 422, dispatchErr.Status)
}
