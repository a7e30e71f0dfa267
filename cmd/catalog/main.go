// Command catalog runs the PIREX HTTP service: the opus API, boolean
// search over the catalog, the search result cache and search analytics.
//
// Usage:
//
//	go run ./cmd/catalog [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/analytics"
	analyticsstore "github.com/Adithya-Monish-Kumar-K/pirex/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog/pgstore"
	opushandler "github.com/Adithya-Monish-Kumar-K/pirex/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/library"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pirex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/resilience"
)

const analyticsSaveInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting catalog service",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"strict_empty_matches", cfg.Search.StrictEmptyMatches,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("catalog service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checker := health.NewChecker()
	libOpts := []library.Option{
		library.WithMetrics(m),
		library.WithIndexWorkers(cfg.Search.IndexWorkers),
		library.WithExecutorOptions(
			executor.WithStrictEmpty(cfg.Search.StrictEmptyMatches),
			executor.WithPreviewChars(cfg.Search.PreviewChars),
		),
	}

	var db *postgres.Client
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating catalog schema: %w", err)
		}
		libOpts = append(libOpts, library.WithPersister(store, config.BackendPostgres))
		checker.Register("postgres", health.PingCheck(store.Ping, health.StatusDown))
	default:
		store := snapshot.NewStore(cfg.Storage.SnapshotDir)
		libOpts = append(libOpts, library.WithPersister(store, config.BackendFile))
		checker.Register("snapshot_dir", snapshotDirCheck(cfg.Storage.SnapshotDir))
		slog.Info("library file", "path", store.Path())
	}

	var queryCache *cache.QueryCache
	var redisPing func(context.Context) error
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker)
			libOpts = append(libOpts, library.WithCache(queryCache))
			redisPing = redisClient.Ping
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	checker.Register("redis", health.PingCheck(redisPing, health.StatusDegraded))

	var catalogProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		catalogProducer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogEvents)
		defer catalogProducer.Close()
		libOpts = append(libOpts, library.WithEvents(catalogProducer))
	}

	lib := library.New(libOpts...)
	if err := lib.Open(ctx); err != nil {
		return err
	}
	stats := lib.Stats()
	slog.Info("library opened", "opi", stats.Opi, "documents", stats.Documents, "index_terms", stats.Terms)

	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		s := lib.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d opi, %d documents", s.Opi, s.Documents),
		}
	})

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	if db != nil {
		aStore := analyticsstore.NewStore(db)
		if err := aStore.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating analytics schema: %w", err)
		}
		if err := aStore.Resume(ctx, aggregator); err != nil {
			slog.Warn("analytics resume failed", "error", err)
		}
		aStore.StartPeriodicSave(ctx, aggregator, analyticsSaveInterval)
	}

	if cfg.Kafka.Enabled {
		// Every replica needs every event, so each one consumes under its
		// own group.
		group := cfg.Kafka.ConsumerGroup + "-" + lib.InstanceID()

		catalogConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogEvents, group,
			kafka.JSONHandler(lib.HandleCatalogEvent))
		go func() {
			if err := catalogConsumer.Start(ctx); err != nil {
				slog.Error("catalog event consumer stopped", "error", err)
			}
		}()

		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, 100, 5*time.Second)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, group+"-analytics",
			aggregator.HandleMessage)
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()
		checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: "consumers active"}
		})
		slog.Info("event bus enabled",
			"catalog_topic", cfg.Kafka.Topics.CatalogEvents,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"group", group,
		)
	}

	opusH := opushandler.New(lib)
	searchH := searchhandler.New(lib, queryCache, tracker, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/opi", opusH.AddOpus)
	mux.HandleFunc("GET /api/v1/opi", opusH.ListOpi)
	mux.HandleFunc("DELETE /api/v1/opi", opusH.Purge)
	mux.HandleFunc("GET /api/v1/opi/{ordinal}", opusH.GetOpus)
	mux.HandleFunc("DELETE /api/v1/opi/{ordinal}", opusH.RemoveOpus)
	mux.HandleFunc("GET /api/v1/summary", opusH.Summary)
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *ratelimit.Limiter
	if cfg.Server.MutationsPerMinute > 0 {
		limiter = ratelimit.New(cfg.Server.MutationsPerMinute, time.Minute)
		defer limiter.Stop()
	}

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover,
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("catalog service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// snapshotDirCheck reports down when the library directory exists but is
// not a directory, and degraded until the first save creates it.
func snapshotDirCheck(dir string) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		info, err := os.Stat(dir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not created yet"}
		case err != nil:
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		case !info.IsDir():
			return health.ComponentHealth{Status: health.StatusDown, Message: dir + " is not a directory"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: dir}
	}
}
