package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/observability/metrics"
)

// ErrTickInProgress is returned when a tick is requested while the previous
// one is still running. Ticks never overlap; the next interval catches up.
var ErrTickInProgress = errors.New("scheduler tick already in progress")

// Tick runs the scheduler pipeline: reconcile schedules, enqueue due work,
// then collect metrics. Metrics collection runs even when an earlier stage
// fails so operators can still see queue state during an incident.
type Tick struct {
	reconciler *Reconciler
	enqueuer   *Enqueuer
	collector  *Collector
	logger     *slog.Logger
	tp         data.TimeProvider
	running    atomic.Bool
}

// NewTick wires the tick pipeline.
func NewTick(reconciler *Reconciler, enqueuer *Enqueuer, collector *Collector, logger *slog.Logger, tp data.TimeProvider) *Tick {
	if logger == nil {
		logger = slog.Default()
	}
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &Tick{reconciler: reconciler, enqueuer: enqueuer, collector: collector, logger: logger, tp: tp}
}

// Run executes one tick and reports its outcome. It is single-flight: a call
// that overlaps a running tick returns ErrTickInProgress without doing work.
func (t *Tick) Run(ctx context.Context) (metrics.TickOutcome, error) {
	if !t.running.CompareAndSwap(false, true) {
		return metrics.TickOutcome{}, ErrTickInProgress
	}
	defer t.running.Store(false)

	started := t.tp.Now()
	var outcome metrics.TickOutcome

	err := t.reconciler.Reconcile(ctx)
	if err == nil {
		var stats EnqueueStats
		stats, err = t.enqueuer.EnqueueDue(ctx)
		outcome.DueRows = stats.DueRows
		outcome.Sent = stats.Sent
		outcome.Failed = stats.Failed
	}

	if collectErr := t.collector.Collect(ctx); collectErr != nil {
		t.logger.WarnContext(ctx, "metrics collection failed", "error", collectErr)
		if err == nil {
			err = collectErr
		}
	}

	outcome.Duration = t.tp.Now().Sub(started)
	outcome.Err = err
	return outcome, err
}
