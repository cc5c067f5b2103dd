package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickingbuttons/tickdb/internal/schema"
)

func tradeColumns() []schema.Column {
	return []schema.Column{
		schema.NewColumn("ts", schema.Timestamp),
		schema.NewColumn("price", schema.F64),
		schema.NewColumn("side", schema.Symbol),
	}
}

func TestNewJSMissingScanFunction(t *testing.T) {
	_, err := NewJS("q.js", "var x = 1;")
	assert.Error(t, err)
}

func TestNewJSSyntaxError(t *testing.T) {
	_, err := NewJS("q.js", "function scan(price { return price; }")
	assert.Error(t, err)
}

func TestNewJSScanNotAFunction(t *testing.T) {
	_, err := NewJS("q.js", "var scan = 5;")
	assert.Error(t, err)
}

func TestRequiredColumnsNoAnnotation(t *testing.T) {
	a, err := NewJS("q.js", "function scan(price, side) { return 1; }")
	require.NoError(t, err)

	names, err := a.RequiredColumns(tradeColumns())
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "side"}, names)
}

func TestRequiredColumnsUnknownColumn(t *testing.T) {
	a, err := NewJS("q.js", "function scan(bogus) { return 1; }")
	require.NoError(t, err)

	_, err = a.RequiredColumns(tradeColumns())
	require.Error(t, err)
	var unknown *UnknownColumnError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bogus", unknown.Column)
}

func TestRequiredColumnsAnnotatedTypeMatches(t *testing.T) {
	a, err := NewJS("q.js", "function scan(price /* f64 */) { return 1; }")
	require.NoError(t, err)

	names, err := a.RequiredColumns(tradeColumns())
	require.NoError(t, err)
	assert.Equal(t, []string{"price"}, names)
}

func TestRequiredColumnsAnnotatedTypeMismatch(t *testing.T) {
	a, err := NewJS("q.js", "function scan(price /* i64 */) { return 1; }")
	require.NoError(t, err)

	_, err = a.RequiredColumns(tradeColumns())
	require.Error(t, err)
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "price", mismatch.Column)
	assert.Equal(t, schema.F64, mismatch.Expected)
	assert.Equal(t, schema.I64, mismatch.Actual)
}

func TestRequiredColumnsNoParams(t *testing.T) {
	a, err := NewJS("q.js", "function scan() { return 1; }")
	require.NoError(t, err)

	names, err := a.RequiredColumns(tradeColumns())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSerializeBeforeScanErrors(t *testing.T) {
	a, err := NewJS("q.js", "function scan() { return 1; }")
	require.NoError(t, err)

	_, err = a.Serialize()
	assert.Error(t, err)
}
