// Package registry holds the process-wide, open-once table map. The parent
// and each worker process call Load once at startup and use the result
// read-only afterwards.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/clickingbuttons/tickdb/internal/table"
)

// Registry is an immutable-after-Load map from table name to open Table.
// It is safe for concurrent read-only use across goroutines; nothing
// mutates it once Load returns.
type Registry struct {
	tables map[string]*table.Table
}

// Load opens every table directory under <home>/data, skipping entries
// without a _meta file. If a table with a _meta file can't be opened, the
// whole load fails with that error and no Registry is returned.
func Load(home string) (*Registry, error) {
	dataDir := filepath.Join(home, "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{tables: map[string]*table.Table{}}, nil
		}
		return nil, fmt.Errorf("registry: could not list %s: %w", dataDir, err)
	}

	tables := make(map[string]*table.Table, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if _, err := os.Stat(filepath.Join(dataDir, name, "_meta")); err != nil {
			continue
		}
		t, err := table.Open(name)
		if err != nil {
			return nil, fmt.Errorf("registry: could not open table %s: %w", name, err)
		}
		tables[name] = t
	}

	return &Registry{tables: tables}, nil
}

// Get returns the named table, or nil if it isn't loaded.
func (r *Registry) Get(name string) *table.Table {
	return r.tables[name]
}

// Len returns the number of loaded tables.
func (r *Registry) Len() int {
	return len(r.tables)
}

// Names returns the loaded table names, in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}
