package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/data/pgxutil"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/observability/metrics"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
)

// Enqueue attempt outcome labels.
const (
	outcomeSent  = "sent"
	outcomeError = "error"
)

// EnqueuerConfig bounds one enqueue pass.
type EnqueuerConfig struct {
	// BatchLimit caps how many due rows one pass locks.
	BatchLimit int
	// CatchupMax caps firings per row per pass; CatchupSpread staggers the
	// delayed ones.
	CatchupMax    int
	CatchupSpread time.Duration
	// JitterMax adds up to this much random delay to each spread firing so
	// independent deployments do not align.
	JitterMax time.Duration
}

// EnqueueStats summarizes one enqueue pass.
type EnqueueStats struct {
	DueRows int
	Sent    int
	Failed  int
}

// Enqueuer turns due schedule rows into queue jobs inside one transaction per
// pass, so row locks, sends, and schedule advances commit together.
type Enqueuer struct {
	db        *sql.DB
	schedules core.ScheduleStore
	sender    core.TxEnqueuer
	sink      statsd.Sink
	cfg       EnqueuerConfig
	logger    *slog.Logger
	tp        data.TimeProvider
	jitter    func() time.Duration
}

// NewEnqueuer wires an Enqueuer.
func NewEnqueuer(db *sql.DB, schedules core.ScheduleStore, sender core.TxEnqueuer, sink statsd.Sink, cfg EnqueuerConfig, logger *slog.Logger, tp data.TimeProvider) *Enqueuer {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	e := &Enqueuer{db: db, schedules: schedules, sender: sender, sink: sink, cfg: cfg, logger: logger, tp: tp}
	e.jitter = func() time.Duration {
		if cfg.JitterMax <= 0 {
			return 0
		}
		return rand.N(cfg.JitterMax)
	}
	return e
}

// EnqueueDue locks a batch of due rows, plans catch-up firings for each, sends
// them, and advances next_run_at by the firings that made it onto the queue.
// A singleton conflict counts as a failed send for its slot: the row stays due
// and retries once the in-flight job clears.
func (e *Enqueuer) EnqueueDue(ctx context.Context) (EnqueueStats, error) {
	var stats EnqueueStats
	now := e.tp.Now().UTC()

	err := pgxutil.WithPgxTx(ctx, e.db, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := e.schedules.FindDueTx(ctx, tx, now, e.cfg.BatchLimit)
			if err != nil {
				return fmt.Errorf("find due schedules: %w", err)
			}
			stats.DueRows = len(rows)

			for _, row := range rows {
				sent, failed, err := e.enqueueRow(ctx, tx, now, row)
				if err != nil {
					return err
				}
				stats.Sent += sent
				stats.Failed += failed

				if sent == 0 {
					continue
				}
				if err := e.schedules.AdvanceTx(ctx, tx, core.AdvanceScheduleParams{
					ID:        row.ID,
					NextRunAt: domain.NextRunAfter(row.NextRunAt, row.Interval, sent),
					LastRunAt: now,
				}); err != nil {
					return fmt.Errorf("advance schedule %d: %w", row.ID, err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return stats, fmt.Errorf("enqueue due: %w", err)
	}
	return stats, nil
}

// enqueueRow sends every planned firing for one due row. Conflicts are
// reported per firing; any other send error aborts the whole pass.
func (e *Enqueuer) enqueueRow(ctx context.Context, tx pgx.Tx, now time.Time, row domain.ScheduleRow) (sent, failed int, err error) {
	plan := domain.PlanCatchup(domain.CatchupParams{
		Now:       now,
		NextRunAt: row.NextRunAt,
		Interval:  row.Interval,
		Max:       e.cfg.CatchupMax,
		Spread:    e.cfg.CatchupSpread,
	})
	if plan.Total() == 0 {
		return 0, 0, nil
	}
	if plan.Total() > 1 {
		e.logger.InfoContext(ctx, "schedule row is behind, spreading catch-up firings",
			"job_type", row.JobType, "sp_address", row.SPAddress,
			"firings", plan.Total(), "overdue", now.Sub(row.NextRunAt).String())
	}

	payload, err := domain.EncodePayload(row.JobType, row.SPAddress, row.Interval)
	if err != nil {
		return 0, 0, err
	}

	// Per-provider jobs carry sp_address as the singleton key so the queue
	// enforces at-most-one queued-or-active job per provider. Global jobs
	// set no key.
	var key string
	if row.JobType.PerProvider() {
		key = row.SPAddress
	}

	for _, offset := range plan.Offsets {
		start := time.Time{}
		if offset > 0 {
			start = now.Add(offset + e.jitter())
		}

		_, sendErr := e.sender.SendTx(ctx, tx, core.SendRequest{
			Queue:        row.JobType.QueueName(),
			Payload:      payload,
			SingletonKey: key,
			StartAfter:   start,
		})
		switch {
		case sendErr == nil:
			sent++
			metrics.EnqueueAttempt(e.sink, string(row.JobType), outcomeSent)
		case errors.Is(sendErr, queue.ErrSingletonConflict):
			failed++
			metrics.EnqueueAttempt(e.sink, string(row.JobType), outcomeError)
			// One queued-or-active job already covers this key; further
			// firings for the row would conflict the same way.
			return sent, failed, nil
		default:
			return sent, failed, fmt.Errorf("send %s job for %q: %w", row.JobType, row.SPAddress, sendErr)
		}
	}
	return sent, failed, nil
}
