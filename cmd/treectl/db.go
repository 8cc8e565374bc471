package main

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/couchcryptid/tree-request-service/internal/config"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connect loads configuration and opens the database pool shared by the
// database-backed commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, withCode(exitUsage, err)
	}
	logger := observability.NewLogger(cfg.LogLevel, "text")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, nil, nil, withCode(exitDB, err)
	}
	return cfg, pool, logger, nil
}
