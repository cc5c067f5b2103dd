package query

import (
	"errors"
	"time"

	"github.com/clickingbuttons/tickdb/internal/adapter"
	"github.com/clickingbuttons/tickdb/internal/registry"
)

// Dispatch runs the full query pipeline against req: build the adapter,
// look up the table, resolve required columns, iterate matching
// partitions, and serialize the accumulator. Every failure carries the
// HTTP status the caller should respond with.
func Dispatch(reg *registry.Registry, req *Request) ([]byte, Stats, *DispatchError) {
	var stats Stats

	lang, err := ResolveLang(req)
	if err != nil {
		return nil, stats, newError(400, "%v", err)
	}
	if lang != "JavaScript" {
		return nil, stats, newError(422, "unsupported language %q: only JavaScript is built into this server", lang)
	}

	from, err := ParseTimestamp(req.From)
	if err != nil {
		return nil, stats, newError(400, "invalid \"from\": %v", err)
	}
	to, err := ParseTimestamp(req.To)
	if err != nil {
		return nil, stats, newError(400, "invalid \"to\": %v", err)
	}

	evalStart := time.Now()

	// Step 1: build the adapter (422 on compile error).
	adp, err := adapter.NewJS(req.Source.Path, req.Source.Text)
	if err != nil {
		return nil, stats, newError(422, "%v", err)
	}

	// Step 2: look up the table (404 if absent).
	t := reg.Get(req.Table)
	if t == nil {
		return nil, stats, newError(404, "table %q is not loaded", req.Table)
	}

	// Step 3: required_columns (422 on schema/type error, 500 otherwise).
	cols, err := adp.RequiredColumns(t.Schema.Columns)
	if err != nil {
		var typeErr *adapter.TypeMismatchError
		var unkErr *adapter.UnknownColumnError
		if errors.As(err, &typeErr) || errors.As(err, &unkErr) {
			return nil, stats, newError(422, "%v", err)
		}
		return nil, stats, newError(500, "%v", err)
	}

	// Step 4: require at least one requested column.
	if len(cols) == 0 {
		return nil, stats, newError(422, "scan must declare at least one column parameter")
	}

	// Step 5: open the partition iterator (422 if the table rejects it).
	iter, err := t.PartitionIter(from, to, cols)
	if err != nil {
		return nil, stats, newError(422, "%v", err)
	}
	defer iter.Close()

	stats.EvalElapsed = time.Since(evalStart)

	// Step 6: accumulate over batches (422 on runtime error).
	loopStart := time.Now()
	for {
		batch, err := iter.Next()
		if err != nil {
			return nil, stats, newError(422, "%v", err)
		}
		if batch == nil {
			break
		}

		if len(batch) > 0 {
			stats.Rows += uint64(batch[0].RowCount)
		}
		for _, pc := range batch {
			stats.BytesRead += uint64(len(pc.Slice))
		}

		if err := adp.ScanPartition(batch); err != nil {
			return nil, stats, newError(422, "%v", err)
		}
	}
	stats.LoopElapsed = time.Since(loopStart)

	// Step 7: serialize (500 on failure).
	serializeStart := time.Now()
	out, err := adp.Serialize()
	if err != nil {
		return nil, stats, newError(500, "%v", err)
	}
	stats.SerializeElapsed = time.Since(serializeStart)

	return out, stats, nil
}
