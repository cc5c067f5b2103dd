package table

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clickingbuttons/tickdb/internal/schema"
)

// metaDoc is the on-disk shape of _meta: schema and partitions flattened
// into one object, with the table name omitted (it's the parent directory).
type metaDoc struct {
	Columns      []schema.Column `json:"columns"`
	PartitionFmt string          `json:"partition_fmt"`
	Partitions   []*Partition    `json:"partitions"`
}

func readMeta(name, metaPath string) (*Table, error) {
	f, err := os.Open(metaPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc metaDoc
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not parse meta file: %w", err)
	}

	s := &schema.Schema{
		Name:         name,
		Columns:      doc.Columns,
		PartitionFmt: doc.PartitionFmt,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &Table{
		Schema:     s,
		Partitions: doc.Partitions,
	}, nil
}

// writeMeta sorts partitions by ts_bounds.min and writes the meta file,
// flushing before returning — writes become visible to a future Open only
// after this completes.
func (t *Table) writeMeta() error {
	t.sortPartitions()

	doc := metaDoc{
		Columns:      t.Schema.Columns,
		PartitionFmt: t.Schema.PartitionFmt,
		Partitions:   t.Partitions,
	}

	f, err := os.OpenFile(t.metaPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("table: could not open meta file %s: %w", t.metaPath, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("table: could not write meta file %s: %w", t.metaPath, err)
	}
	return f.Sync()
}
