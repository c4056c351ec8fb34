// Command server runs the screening API: it wires stores, source adapters,
// the dispatcher and the run controller, then serves HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosscheck/internal/audit"
	"crosscheck/internal/auth"
	"crosscheck/internal/dispatch"
	dispatchmetrics "crosscheck/internal/dispatch/metrics"
	"crosscheck/internal/domain"
	"crosscheck/internal/matching"
	"crosscheck/internal/platform/config"
	"crosscheck/internal/platform/httpserver"
	"crosscheck/internal/platform/logger"
	"crosscheck/internal/platform/postgres"
	"crosscheck/internal/platform/redis"
	"crosscheck/internal/report"
	"crosscheck/internal/risk"
	"crosscheck/internal/screening"
	screeningmetrics "crosscheck/internal/screening/metrics"
	"crosscheck/internal/sources"
	httptransport "crosscheck/internal/transport/http"
	id "crosscheck/pkg/domain"
)

const tokenTTL = time.Hour

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("CROSSCHECK_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit trail: Postgres when configured, else in memory. The Kafka sink
	// is optional fan-out; the stored trail is authoritative either way.
	var auditStore audit.Store
	if pool != nil {
		store := audit.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		auditStore = store
	} else {
		auditStore = audit.NewMemoryStore()
	}

	var sinkCh chan audit.Entry
	kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if kafkaSink != nil {
		defer kafkaSink.Close()
		sinkCh = make(chan audit.Entry, 256)
		worker := audit.NewWorker(kafkaSink, sinkCh, log)
		go worker.Run(workerCtx)
	}
	publisher := audit.NewPublisher(auditStore, sinkCh, log)

	// Source result cache: Redis when configured, else per-process memory.
	var cache sources.CacheStore
	if redisClient != nil {
		cache = sources.NewRedisCacheStore(redisClient, cfg.Screening.CacheTTL)
	} else {
		cache = sources.NewMemoryCacheStore(cfg.Screening.CacheTTL)
	}

	dispatcher := dispatch.New(log, dispatchmetrics.New())
	for name, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		adapter, err := buildAdapter(id.SourceID(name), src, log)
		if err != nil {
			return err
		}
		dispatcher.Register(sources.WithCache(adapter, cache, log), src.RateLimit)
	}

	var snapshots screening.SnapshotStore
	if pool != nil {
		store := screening.NewPostgresSnapshotStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		snapshots = store
	} else {
		snapshots = screening.NewMemorySnapshotStore()
	}

	controller := screening.NewController(
		dispatcher,
		matching.New(cfg.Matching, log),
		risk.NewEngine(cfg.Risk),
		publisher,
		snapshots,
		screeningmetrics.New(),
		cfg.Screening,
		log,
	)
	if err := controller.Restore(ctx); err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.Server.JWTSigningKey, tokenTTL)
	runs := httptransport.NewRunHandler(controller, publisher, report.NewTextGenerator(), log)
	authHandler := httptransport.NewAuthHandler(tokens, func(key string) error {
		return auth.VerifyKey(key, cfg.Server.OperatorKeyHash)
	}, tokenTTL, log)
	router := httptransport.NewRouter(runs, authHandler, tokens, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.InfoContext(ctx, "crosscheck server started",
		"addr", cfg.Server.Addr,
		"sources", dispatcher.Sources(),
		"postgres", pool != nil,
		"redis", redisClient != nil,
		"kafka", kafkaSink != nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.InfoContext(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// buildAdapter picks the adapter implementation for a configured source by
// its category.
func buildAdapter(sourceID id.SourceID, src config.Source, log *slog.Logger) (sources.Adapter, error) {
	fetcher := sources.NewHTTPFetcher(src.Timeout)
	switch src.Category {
	case domain.CategorySanctions:
		return sources.NewSanctionsAdapter(sourceID, src, fetcher, log), nil
	case domain.CategoryPEP:
		return sources.NewPEPAdapter(sourceID, src, fetcher, log), nil
	case domain.CategoryAdverseMedia:
		return sources.NewNewsAdapter(sourceID, src, fetcher, log), nil
	case domain.CategoryWebSearch:
		return sources.NewWebSearchAdapter(sourceID, src, fetcher, log), nil
	default:
		return nil, fmt.Errorf("source %s: unknown category %q", sourceID, src.Category)
	}
}
