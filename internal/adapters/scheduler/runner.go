// Package scheduler runs the tick loop that drives schedule reconciliation
// and enqueueing.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/observability/metrics"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
	"github.com/checkernet/probed/internal/service"
)

// Runner drives the tick pipeline at a fixed interval until its context is
// cancelled.
type Runner struct {
	tick     *service.Tick
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB       *sql.DB
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink

	Reconciler service.ReconcilerConfig
	Enqueuer   service.EnqueuerConfig

	// Providers supplies the active provider set; usually the Redis cache in
	// front of the Postgres store.
	Providers core.ProviderLister

	// Optional injections for tests.
	Schedules    core.ScheduleStore
	Queue        *queue.Store
	TimeProvider data.TimeProvider
}

// NewRunner wires a scheduler Runner from its options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Providers == nil {
		return nil, errors.New("provider lister is required")
	}
	if opts.Interval < time.Second {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}

	schedules := opts.Schedules
	if schedules == nil {
		schedules = data.NewScheduleRepoWithTimeProvider(opts.DB, opts.TimeProvider)
	}
	qs := opts.Queue
	if qs == nil {
		qs = queue.NewStore(opts.DB, queue.StoreOptions{
			Logger:       opts.Logger,
			TimeProvider: opts.TimeProvider,
		})
	}

	tick := service.NewTick(
		service.NewReconciler(opts.Providers, schedules, opts.Reconciler, opts.Logger, opts.TimeProvider),
		service.NewEnqueuer(opts.DB, schedules, qs, opts.Metrics, opts.Enqueuer, opts.Logger, opts.TimeProvider),
		service.NewCollector(qs, schedules, opts.Metrics, opts.Logger, opts.TimeProvider),
		opts.Logger,
		opts.TimeProvider,
	)

	return &Runner{
		tick:     tick,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the tick loop and blocks until the context is cancelled. Tick
// failures are logged and the loop keeps going; a scheduler that exits on a
// transient database error stops all probing.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "scheduler starting", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			outcome, err := r.tick.Run(ctx)
			if errors.Is(err, service.ErrTickInProgress) {
				r.logger.WarnContext(ctx, "previous tick still running, skipping interval")
				continue
			}

			metrics.TickCompleted(r.metrics, outcome)

			if err != nil {
				r.logger.ErrorContext(ctx, "scheduler tick failed", "error", err)
				continue
			}
			if outcome.Sent > 0 || outcome.Failed > 0 {
				r.logger.InfoContext(ctx, "scheduler tick completed",
					"due_rows", outcome.DueRows,
					"sent", outcome.Sent,
					"failed", outcome.Failed,
					"duration", outcome.Duration.Round(time.Millisecond).String())
			}
		}
	}
}
