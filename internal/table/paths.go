package table

import (
	"os"
	"path/filepath"

	"github.com/clickingbuttons/tickdb/internal/schema"
	"github.com/clickingbuttons/tickdb/internal/tstime"
)

// HomePath is TICKDB_HOME, the root directory prefixed to data/.
func HomePath() string {
	return os.Getenv("TICKDB_HOME")
}

// DataPath is <TICKDB_HOME>/data/<name>.
func DataPath(name string) string {
	return filepath.Join(HomePath(), "data", name)
}

// MetaPath is <TICKDB_HOME>/data/<name>/_meta.
func MetaPath(name string) string {
	return filepath.Join(DataPath(name), "_meta")
}

// PartitionDirPath is the directory a timestamp falls into under a schema's
// partition format.
func PartitionDirPath(s *schema.Schema, ts int64) string {
	return filepath.Join(DataPath(s.Name), tstime.PartitionDir(s.PartitionFmt, ts))
}

// ColumnPath is <partition-dir>/<col>.<type_lowercase>.
func ColumnPath(partitionDir string, c schema.Column) string {
	return filepath.Join(partitionDir, c.Name+"."+c.Type.String())
}

// SymbolsPath is <TICKDB_HOME>/data/<table>/<col>.symbol.syms, table-wide
// (not per-partition — a symbol's meaning must be stable across the whole
// table's history).
func SymbolsPath(tableName string, c schema.Column) string {
	return filepath.Join(DataPath(tableName), c.Name+".symbol.syms")
}
