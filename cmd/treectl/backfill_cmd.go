package main

import (
	"errors"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/adapter/mapbox"
	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/couchcryptid/tree-request-service/internal/backfill"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/spf13/cobra"
)

type backfillResult struct {
	Batches int            `json:"batches"`
	Total   backfill.Stats `json:"total"`
}

func newBackfillCmd() *cobra.Command {
	var maxBatches int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Geocode stored requests that have no coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if !cfg.MapboxEnabled {
				return withCode(exitUsage, errors.New("geocoding is disabled: set MAPBOX_TOKEN"))
			}

			metrics := observability.NewMetrics()
			geocoder := mapbox.NewCachedGeocoder(
				mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger),
				cfg.MapboxCacheSize, metrics)
			worker := backfill.New(postgres.NewRepository(pool), geocoder, backfill.Options{
				Interval:  cfg.BackfillInterval,
				BatchSize: cfg.BackfillBatchSize,
			}, metrics, logger)

			start := time.Now()
			var out backfillResult
			for maxBatches <= 0 || out.Batches < maxBatches {
				stats, err := worker.RunOnce(ctx)
				if err != nil {
					return withCode(exitDB, err)
				}
				out.Batches++
				out.Total.Scanned += stats.Scanned
				out.Total.Geocoded += stats.Geocoded
				out.Total.Unresolved += stats.Unresolved
				if stats.Scanned < cfg.BackfillBatchSize {
					break
				}
			}

			return writeJSON(cmd.OutOrStdout(), commandOutput{
				Command:    "backfill",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     out,
			})
		},
	}

	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "Stop after this many batches (0 means until drained)")
	return cmd
}
