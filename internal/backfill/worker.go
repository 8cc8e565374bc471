// Package backfill geocodes stored tree requests that have no map position yet.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Store reads and updates requests awaiting geocoding.
type Store interface {
	PendingGeocode(ctx context.Context, limit int) ([]domain.TreeRequest, error)
	UpdateGeocode(ctx context.Context, req domain.TreeRequest) error
}

// Options control the polling loop.
type Options struct {
	Interval  time.Duration
	BatchSize int
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Stats summarizes one backfill pass.
type Stats struct {
	Scanned    int
	Geocoded   int
	Unresolved int
}

// Worker periodically geocodes pending tree requests.
type Worker struct {
	store     Store
	geocoder  domain.Geocoder
	interval  time.Duration
	batchSize int
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Worker.
func New(store Store, geocoder domain.Geocoder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Worker {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Worker{
		store:     store,
		geocoder:  geocoder,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run geocodes batches until ctx is cancelled. A full batch is followed
// immediately by another; otherwise the worker sleeps for the interval.
// Store failures back off exponentially.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("geocode backfill started", "interval", w.interval, "batch_size", w.batchSize)
	w.metrics.BackfillRunning.Set(1)
	defer w.metrics.BackfillRunning.Set(0)

	backoff := initialBackoff
	for {
		stats, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			w.logger.Info("geocode backfill stopping", "reason", ctx.Err())
			return nil
		}

		wait := w.interval
		switch {
		case err != nil:
			w.logger.Error("geocode backfill pass failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff)
		case stats.Scanned == w.batchSize:
			backoff = initialBackoff
			wait = 0
		default:
			backoff = initialBackoff
		}

		if !w.sleep(ctx, wait) {
			w.logger.Info("geocode backfill stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce geocodes a single batch of pending requests.
func (w *Worker) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := w.store.PendingGeocode(ctx, w.batchSize)
	if err != nil {
		return stats, err
	}

	for _, req := range pending {
		updated, changed := domain.EnrichWithGeocoding(ctx, req, w.geocoder, w.logger)
		if !changed {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			continue
		}
		if err := w.store.UpdateGeocode(ctx, updated); err != nil {
			return stats, err
		}

		stats.Scanned++
		if updated.Latitude != nil {
			stats.Geocoded++
			w.metrics.BackfillProcessed.WithLabelValues("geocoded").Inc()
		} else {
			stats.Unresolved++
			w.metrics.BackfillProcessed.WithLabelValues("unresolved").Inc()
		}
	}

	if stats.Scanned > 0 {
		w.logger.Info("geocode backfill pass", "scanned", stats.Scanned, "geocoded", stats.Geocoded, "unresolved", stats.Unresolved)
	}
	return stats, nil
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-w.clock.After(d):
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
