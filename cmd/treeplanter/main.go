package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/tree-request-service/internal/adapter/automation"
	httpadapter "github.com/couchcryptid/tree-request-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tree-request-service/internal/adapter/kafka"
	"github.com/couchcryptid/tree-request-service/internal/adapter/mapbox"
	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/couchcryptid/tree-request-service/internal/adapter/redislock"
	"github.com/couchcryptid/tree-request-service/internal/backfill"
	"github.com/couchcryptid/tree-request-service/internal/config"
	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/couchcryptid/tree-request-service/internal/planting"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}
	repo := postgres.NewRepository(pool)

	// Per-address locks: Redis when configured, otherwise in-process.
	var locker planting.Locker = redislock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := redislock.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = redislock.NewRedisLocker(client, cfg.LockTTL, logger)
		logger.Info("redis address locks enabled")
	}

	var publisher planting.Publisher
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	sidecar := automation.NewClient(cfg.AutomationURL, automation.Options{
		Timeout:       cfg.AutomationTimeout,
		MaxSessions:   cfg.AutomationMaxSessions,
		RatePerMinute: cfg.AutomationRate,
		Burst:         cfg.AutomationBurst,
	}, metrics, logger)
	submitter := planting.SubmitterFunc(func(ctx context.Context) (planting.Session, error) {
		s, err := sidecar.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	orch := planting.New(repo, submitter, locker, publisher, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, repo, repo, cfg.CORSAllowedOrigins, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Geocode backfill (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		var geocoder domain.Geocoder = mapbox.NewCachedGeocoder(
			mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger),
			cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)

		worker := backfill.New(repo, geocoder, backfill.Options{
			Interval:  cfg.BackfillInterval,
			BatchSize: cfg.BackfillBatchSize,
		}, metrics, logger)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error("geocode backfill error", "error", err)
			}
		}()
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
