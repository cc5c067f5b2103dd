package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/table"
)

func TestLoadEmptyHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TICKDB_HOME", home)

	reg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, reg.Get("trades"))
}

func TestLoadMissingDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TICKDB_HOME", home)

	reg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestLoadPicksUpExistingTables(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TICKDB_HOME", home)

	s := schema.New("trades", "%Y-%m-%d")
	s.AddColumn(schema.NewColumn("price", schema.F64))
	tbl, err := table.Create(s)
	require.NoError(t, err)
	require.NoError(t, tbl.Flush())
	require.NoError(t, tbl.Close())

	reg, err := Load(home)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"trades"}, reg.Names())
	assert.NotNil(t, reg.Get("trades"))
}
