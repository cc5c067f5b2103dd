package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clickingbuttons/tickdb/internal/api"
	"github.com/clickingbuttons/tickdb/internal/config"
	"github.com/clickingbuttons/tickdb/internal/monitoring"
	"github.com/clickingbuttons/tickdb/internal/registry"
	"github.com/clickingbuttons/tickdb/internal/worker"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Int("pid", os.Getpid()).Msg("Starting tickdb")

	cfg := config.Load()

	if worker.IsWorker() {
		runWorker(cfg)
		return
	}
	runParent(cfg)
}

// runParent binds the listener, loads every table once, and re-execs
// itself into cfg.Server.NumProcs worker processes sharing that listener.
func runParent(cfg *config.Config) {
	listener, err := worker.BindListener(cfg.Server.Host + ":" + cfg.Server.Port)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind listener")
	}

	reg, err := registry.Load(cfg.Server.Home)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tables")
	}
	log.Info().Int("tables", reg.Len()).Msg("tables loaded")

	log.Info().Str("addr", cfg.Server.Host+":"+cfg.Server.Port).Int("workers", cfg.Server.NumProcs).Msg("forking workers")
	if err := worker.RunParent(cfg.Server.NumProcs, listener); err != nil {
		log.Fatal().Err(err).Msg("worker pool failed")
	}
	log.Info().Msg("all workers exited")
}

// runWorker reconstructs the inherited listener, opens its own copy of
// every table (mmaps are per-process), and serves requests sequentially.
func runWorker(cfg *config.Config) {
	worker.InstallSigintHandler()

	listener, err := worker.ListenerFromParent()
	if err != nil {
		log.Fatal().Err(err).Msg("worker could not reconstruct listener")
	}

	reg, err := registry.Load(cfg.Server.Home)
	if err != nil {
		log.Fatal().Err(err).Msg("worker could not load tables")
	}

	metrics := monitoring.NewMetricsCollector()
	metrics.SetDescription("total_queries_executed", "Total number of query dispatches")
	metrics.SetDescription("total_rows_scanned", "Total rows scanned across all dispatches")
	metrics.SetDescription("storage_size_bytes", "Storage size in bytes")

	healthMonitor := monitoring.NewHealthMonitor(version)
	healthMonitor.RegisterChecker(monitoring.NewStorageHealthChecker(cfg.Server.Home + "/data"))
	healthMonitor.RegisterChecker(monitoring.NewQueryEngineHealthChecker(metrics))

	alertManager := monitoring.NewAlertManager(metrics)
	alertManager.AddListener(monitoring.NewLogAlertListener())

	dataDir := cfg.Server.Home + "/data"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.RecordStorageSize(dirSize(dataDir))
				alertManager.CheckAlerts()
			case <-ctx.Done():
				return
			}
		}
	}()

	startedAt := time.Now()
	r := newRouter(reg, startedAt, metrics, healthMonitor, alertManager)

	log.Info().Int("pid", os.Getpid()).Msg("worker serving")
	if err := worker.Serve(listener, r); err != nil {
		log.Error().Err(err).Msg("worker stopped serving")
	}
}

// dirSize sums regular file sizes under dir, the same way
// StorageHealthChecker does, so the storage_size_mb gauge and the
// health check's total_size_mb detail agree.
func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func newRouter(
	reg *registry.Registry,
	startedAt time.Time,
	metrics *monitoring.MetricsCollector,
	healthMonitor *monitoring.HealthMonitor,
	alertManager *monitoring.AlertManager,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Tickdb-Rows", "X-Tickdb-Bytes", "X-Tickdb-Eval-Ms"},
	}))

	r.Get("/", api.Root())
	r.Post("/", api.Query(reg, metrics))
	r.Get("/debug/stats", api.DebugStats(reg, startedAt))

	r.Get("/health", healthMonitor.HTTPHandler())
	r.Get("/health/live", healthMonitor.LivenessHandler())
	r.Get("/health/ready", healthMonitor.ReadinessHandler())
	r.Get("/metrics", api.GetMetrics(metrics))
	r.Get("/metrics/prometheus", api.PrometheusMetrics(monitoring.NewPrometheusExporter(metrics)))
	r.Get("/alerts", api.GetAlerts(alertManager))
	r.Get("/alerts/active", api.GetActiveAlerts(alertManager))

	return r
}
