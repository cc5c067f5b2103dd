package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clickingbuttons/tickdb/internal/monitoring"
	"github.com/clickingbuttons/tickdb/internal/query"
	"github.com/clickingbuttons/tickdb/internal/registry"
)

// Root serves GET /.
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tickdb here\n"))
	}
}

// Query serves POST /, the full query pipeline dispatch.
func Query(reg *registry.Registry, metrics *monitoring.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("could not read body: %v", err), http.StatusBadRequest)
			return
		}

		var req query.Request
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, fmt.Sprintf("malformed request: %v", err), http.StatusBadRequest)
			return
		}

		out, stats, dispatchErr := query.Dispatch(reg, &req)
		if dispatchErr != nil {
			metrics.IncrementCounter("failed_queries", 1)
			log.Debug().
				Str("table", req.Table).
				Int("status", dispatchErr.Status).
				Str("error", dispatchErr.Message).
				Msg("query failed")
			http.Error(w, dispatchErr.Message, dispatchErr.Status)
			return
		}
		metrics.RecordQuery(stats.EvalElapsed, stats.Rows, stats.BytesRead)

		w.Header().Set("X-Tickdb-Rows", strconv.FormatUint(stats.Rows, 10))
		w.Header().Set("X-Tickdb-Bytes", strconv.FormatUint(stats.BytesRead, 10))
		w.Header().Set("X-Tickdb-Eval-Ms", strconv.FormatFloat(stats.EvalElapsed.Seconds()*1000, 'f', 3, 64))

		log.Debug().
			Str("table", req.Table).
			Dur("eval", stats.EvalElapsed).
			Dur("loop", stats.LoopElapsed).
			Dur("serialize", stats.SerializeElapsed).
			Uint64("rows", stats.Rows).
			Uint64("bytes_read", stats.BytesRead).
			Float64("gb_s", stats.GBps()).
			Float64("mrows_s", stats.Mrowsps()).
			Msg("query complete")

		w.Write(out)
	}
}

// DebugStats serves GET /debug/stats: a cheap introspection endpoint for
// operators listing the tables this worker has loaded, its uptime and its
// pid. Per-query stats are only in the X-Tickdb-* response headers.
func DebugStats(reg *registry.Registry, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"tables":     reg.Names(),
			"table_count": reg.Len(),
			"uptime_s":   time.Since(startedAt).Seconds(),
			"pid":        os.Getpid(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
