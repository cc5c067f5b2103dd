package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus is the tri-state a worker or one of its checked components
// can report.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// ComponentHealth is one checker's result: the column store on disk, or
// the query engine's own recent latency.
type ComponentHealth struct {
	Name         string                 `json:"name"`
	Status       HealthStatus           `json:"status"`
	Message      string                 `json:"message,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
	ResponseTime time.Duration          `json:"response_time_ms"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SystemHealth is a worker's full health snapshot, served from GET /health.
type SystemHealth struct {
	Status     HealthStatus                `json:"status"`
	Timestamp  time.Time                   `json:"timestamp"`
	Version    string                      `json:"version"`
	Uptime     time.Duration               `json:"uptime_seconds"`
	Components map[string]*ComponentHealth `json:"components"`
	SystemInfo SystemInfo                  `json:"system_info"`
}

// SystemInfo is process-level info plus the column store's size, the
// latter copied out of the storage checker's Details so callers don't
// have to dig through Components to find it.
type SystemInfo struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutines int     `json:"num_goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumCPU        int     `json:"num_cpu"`
	StorageUsedMB float64 `json:"storage_used_mb"`
}

// HealthChecker is one pluggable check a HealthMonitor fans out to.
type HealthChecker interface {
	Name() string
	Check() (*ComponentHealth, error)
}

// HealthMonitor runs this worker's registered checkers (storage, query
// engine) in parallel and rolls their results up into a SystemHealth.
type HealthMonitor struct {
	mu        sync.RWMutex
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string
}

// NewHealthMonitor creates a health monitor that reports version and has
// been alive since the call to NewHealthMonitor.
func NewHealthMonitor(version string) *HealthMonitor {
	return &HealthMonitor{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		version:   version,
	}
}

// RegisterChecker adds checker, keyed by its own Name().
func (h *HealthMonitor) RegisterChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[checker.Name()] = checker
}

// GetHealth runs every registered checker concurrently and folds the
// worst component status into the overall one: down beats degraded beats
// ok.
func (h *HealthMonitor) GetHealth() *SystemHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health := &SystemHealth{
		Status:     HealthStatusOK,
		Timestamp:  time.Now(),
		Version:    h.version,
		Uptime:     time.Since(h.startTime),
		Components: make(map[string]*ComponentHealth),
		SystemInfo: h.getSystemInfo(),
	}

	var wg sync.WaitGroup
	results := make(chan struct {
		name   string
		health *ComponentHealth
	}, len(h.checkers))

	for name, checker := range h.checkers {
		wg.Add(1)
		go func(n string, c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			componentHealth, err := c.Check()
			if err != nil {
				componentHealth = &ComponentHealth{
					Name:    n,
					Status:  HealthStatusDown,
					Message: err.Error(),
				}
			}
			componentHealth.ResponseTime = time.Since(start)
			componentHealth.LastChecked = time.Now()

			results <- struct {
				name   string
				health *ComponentHealth
			}{n, componentHealth}
		}(name, checker)
	}

	wg.Wait()
	close(results)

	for result := range results {
		health.Components[result.name] = result.health

		switch result.health.Status {
		case HealthStatusDown:
			health.Status = HealthStatusDown
		case HealthStatusDegraded:
			if health.Status != HealthStatusDown {
				health.Status = HealthStatusDegraded
			}
		}

		if sizeMB, ok := result.health.Details["total_size_mb"].(float64); ok {
			health.SystemInfo.StorageUsedMB = sizeMB
		}
	}

	return health
}

// HTTPHandler serves the full SystemHealth, returning 503 when any
// component is degraded or down.
func (h *HealthMonitor) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		statusCode := http.StatusOK
		switch health.Status {
		case HealthStatusDegraded, HealthStatusDown:
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler answers whether the process is up at all, without
// running any checker.
func (h *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "alive",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler answers whether this worker can serve queries: down
// means not ready, degraded does not.
func (h *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		if health.Status == HealthStatusDown {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":     "not_ready",
				"components": health.Components,
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
	}
}

func (h *HealthMonitor) getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: float64(m.Alloc) / 1024 / 1024,
		MemoryTotalMB: float64(m.TotalAlloc) / 1024 / 1024,
		NumCPU:        runtime.NumCPU(),
		// StorageUsedMB is filled in by GetHealth from the storage
		// checker's result, once checkers have actually run.
	}
}
