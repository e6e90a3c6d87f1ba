// Package service holds the scheduler's tick pipeline: reconciling schedule
// rows against the active provider set, enqueueing due work, and publishing
// occupancy metrics.
package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
)

// ReconcilerConfig carries the target cadence for every job type.
type ReconcilerConfig struct {
	// DealInterval and RetrievalInterval apply per provider.
	DealInterval      time.Duration
	RetrievalInterval time.Duration

	// Global maintenance cadences.
	MetricsInterval          time.Duration
	MetricsCleanupInterval   time.Duration
	ProvidersRefreshInterval time.Duration

	// PhaseSpread staggers the first firing of newly inserted rows so a cold
	// start does not point every provider at the same instant. Zero disables
	// the stagger.
	PhaseSpread time.Duration
}

// Reconciler converges job_schedule_state with the active provider set.
type Reconciler struct {
	providers core.ProviderLister
	schedules core.ScheduleStore
	cfg       ReconcilerConfig
	logger    *slog.Logger
	tp        data.TimeProvider
}

// NewReconciler wires a Reconciler.
func NewReconciler(providers core.ProviderLister, schedules core.ScheduleStore, cfg ReconcilerConfig, logger *slog.Logger, tp data.TimeProvider) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &Reconciler{providers: providers, schedules: schedules, cfg: cfg, logger: logger, tp: tp}
}

// Reconcile upserts one schedule row per (job type, provider) plus the global
// rows, then prunes rows for providers that are no longer active. An empty
// provider set skips the prune: it usually means the source was unreachable,
// and deleting every row on a blip would lose all schedule phase state.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	active, err := r.providers.ListActiveProviders(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: list providers: %w", err)
	}

	now := r.tp.Now().UTC()

	for _, addr := range active {
		for _, jt := range []domain.JobType{domain.JobTypeDeal, domain.JobTypeRetrieval} {
			interval := r.intervalFor(jt)
			if err := r.schedules.Upsert(ctx, core.UpsertScheduleParams{
				JobType:   jt,
				SPAddress: addr,
				Interval:  interval,
				NextRunAt: now.Add(r.phaseOffset(jt, addr)),
			}); err != nil {
				return fmt.Errorf("reconcile: upsert %s/%s: %w", jt, addr, err)
			}
		}
	}

	for _, jt := range []domain.JobType{domain.JobTypeMetrics, domain.JobTypeMetricsCleanup, domain.JobTypeProvidersRefresh} {
		if err := r.schedules.Upsert(ctx, core.UpsertScheduleParams{
			JobType:   jt,
			SPAddress: domain.GlobalAddress,
			Interval:  r.intervalFor(jt),
			NextRunAt: now,
		}); err != nil {
			return fmt.Errorf("reconcile: upsert global %s: %w", jt, err)
		}
	}

	if len(active) == 0 {
		r.logger.WarnContext(ctx, "active provider set is empty, skipping schedule prune")
		return nil
	}

	removed, err := r.schedules.DeleteForInactiveProviders(ctx, active)
	if err != nil {
		return fmt.Errorf("reconcile: prune inactive providers: %w", err)
	}
	if len(removed) > 0 {
		r.logger.InfoContext(ctx, "pruned schedules for departed providers",
			"count", len(removed), "providers", removed)
	}
	return nil
}

func (r *Reconciler) intervalFor(jt domain.JobType) time.Duration {
	switch jt {
	case domain.JobTypeDeal:
		return r.cfg.DealInterval
	case domain.JobTypeRetrieval:
		return r.cfg.RetrievalInterval
	case domain.JobTypeMetrics:
		return r.cfg.MetricsInterval
	case domain.JobTypeMetricsCleanup:
		return r.cfg.MetricsCleanupInterval
	case domain.JobTypeProvidersRefresh:
		return r.cfg.ProvidersRefreshInterval
	default:
		return time.Hour
	}
}

// phaseOffset picks a stable per-row offset inside PhaseSpread. Hashing the
// row identity keeps the offset deterministic across restarts, which matters
// only on insert since updates never touch next_run_at.
func (r *Reconciler) phaseOffset(jt domain.JobType, addr string) time.Duration {
	spreadSec := int64(r.cfg.PhaseSpread / time.Second)
	if spreadSec <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(jt)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(addr))
	return time.Duration(int64(h.Sum64()%uint64(spreadSec))) * time.Second //nolint:gosec
}
