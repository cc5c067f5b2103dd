package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
)

// StorageHealthChecker checks that TICKDB_HOME/data is present and writable.
type StorageHealthChecker struct {
	storagePath string
}

// NewStorageHealthChecker creates a new storage health checker.
func NewStorageHealthChecker(storagePath string) *StorageHealthChecker {
	return &StorageHealthChecker{
		storagePath: storagePath,
	}
}

// Name returns the name of the checker.
func (s *StorageHealthChecker) Name() string {
	return "storage"
}

// Check performs the health check.
func (s *StorageHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    s.Name(),
		Status:  HealthStatusOK,
		Details: make(map[string]interface{}),
	}

	info, err := os.Stat(s.storagePath)
	if err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("storage directory not accessible: %v", err)
	}
	if !info.IsDir() {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("storage path is not a directory")
	}

	testFile := filepath.Join(s.storagePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("cannot write to storage: %v", err)
	}
	os.Remove(testFile)

	var totalSize int64
	var fileCount int
	err = filepath.Walk(s.storagePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
			fileCount++
		}
		return nil
	})
	if err != nil {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("error calculating storage stats: %v", err)
	}

	health.Details["total_size_mb"] = float64(totalSize) / 1024 / 1024
	health.Details["file_count"] = fileCount
	health.Details["path"] = s.storagePath

	return health, nil
}

// QueryEngineHealthChecker reports on the query rate and latency metrics
// the dispatch pipeline records via MetricsCollector.
type QueryEngineHealthChecker struct {
	metrics *MetricsCollector
}

// NewQueryEngineHealthChecker creates a new query engine health checker.
func NewQueryEngineHealthChecker(metrics *MetricsCollector) *QueryEngineHealthChecker {
	return &QueryEngineHealthChecker{
		metrics: metrics,
	}
}

// Name returns the name of the checker.
func (q *QueryEngineHealthChecker) Name() string {
	return "query_engine"
}

// Check performs the health check.
func (q *QueryEngineHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    q.Name(),
		Status:  HealthStatusOK,
		Details: make(map[string]interface{}),
	}

	metrics := q.metrics.GetMetrics()
	var queryRate, avgDurationMs, p99DurationMs float64
	for _, m := range metrics {
		switch m.Name {
		case "query_rate_per_second":
			queryRate = m.Value
		case "query_eval_ms_avg":
			avgDurationMs = m.Value
		case "query_eval_ms_p99":
			p99DurationMs = m.Value
		}
	}

	health.Details["rate_per_second"] = queryRate
	health.Details["avg_eval_ms"] = avgDurationMs
	health.Details["p99_eval_ms"] = p99DurationMs

	if p99DurationMs > 5000 {
		health.Status = HealthStatusDegraded
		health.Message = "query compile/setup latency is degraded"
	}

	return health, nil
}
