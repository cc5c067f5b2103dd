package symbol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAndResolve(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "side.syms"), true)
	require.NoError(t, err)
	defer d.Close()

	idxA, err := d.Intern("AAPL")
	require.NoError(t, err)
	idxB, err := d.Intern("MSFT")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), idxA)
	assert.Equal(t, uint64(2), idxB)
	assert.Equal(t, "AAPL", d.Resolve(idxA))
	assert.Equal(t, "MSFT", d.Resolve(idxB))
	assert.Equal(t, 2, d.Len())
}

func TestInternIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "side.syms"), true)
	require.NoError(t, err)
	defer d.Close()

	first, err := d.Intern("AAPL")
	require.NoError(t, err)
	second, err := d.Intern("AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, d.Len())
}

func TestInternRejectsNewline(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "side.syms"), true)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Intern("bad\nvalue")
	assert.Error(t, err)
}

func TestResolveOutOfRangePanics(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "side.syms"), true)
	require.NoError(t, err)
	defer d.Close()

	assert.Panics(t, func() { d.Resolve(0) })
	assert.Panics(t, func() { d.Resolve(1) })
}

func TestReopenReloadsExistingSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.syms")

	d1, err := Open(path, true)
	require.NoError(t, err)
	_, err = d1.Intern("AAPL")
	require.NoError(t, err)
	_, err = d1.Intern("MSFT")
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	d2, err := Open(path, true)
	require.NoError(t, err)
	defer d2.Close()

	assert.Equal(t, 2, d2.Len())
	assert.Equal(t, "AAPL", d2.Resolve(1))
	assert.Equal(t, "MSFT", d2.Resolve(2))

	// re-interning across a reopen must reuse the existing index
	idx, err := d2.Intern("AAPL")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "missing.syms"), false)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.NoError(t, d.Close())
}

func TestOpenReadOnlyDoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.syms")
	d, err := Open(path, false)
	require.NoError(t, err)
	defer d.Close()

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
