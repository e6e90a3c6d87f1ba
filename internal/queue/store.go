// Package queue implements the durable Postgres-backed job queue: named
// queues with a singleton policy, delayed delivery, skip-locked reservation,
// and NOTIFY wakeups for workers.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/data/pgxutil"
)

// Sentinel errors surfaced by the store.
var (
	// ErrSingletonConflict reports a send rejected because a queued-or-active
	// job already holds the singleton key.
	ErrSingletonConflict = errors.New("singleton job already queued or active")

	// ErrNoJobsAvailable reports an empty reserve.
	ErrNoJobsAvailable = errors.New("no jobs available")
)

// Job states persisted in queue_jobs.
const (
	StateCreated   = "created"
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// notifyChannel returns the NOTIFY channel name for a queue.
func notifyChannel(queue string) string {
	return "queue_job_added_" + queue
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// Store provides queue operations on the queue_jobs table.
type Store struct {
	DB           *sql.DB
	logger       *slog.Logger
	timeProvider data.TimeProvider
}

var (
	_ core.Enqueuer          = (*Store)(nil)
	_ core.TxEnqueuer        = (*Store)(nil)
	_ core.QueueIntrospector = (*Store)(nil)
)

// NewStore creates a Store backed by the given pool.
func NewStore(db *sql.DB, opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &Store{DB: db, logger: logger, timeProvider: tp}
}

// Send places one job on the queue in its own transaction.
func (s *Store) Send(ctx context.Context, req core.SendRequest) (uuid.UUID, error) {
	var id uuid.UUID
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			sent, sendErr := s.SendTx(ctx, tx, req)
			if sendErr != nil {
				return sendErr
			}
			id = sent
			return nil
		},
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// SendTx places one job on the queue inside the caller's transaction. The
// insert runs under a savepoint so a singleton conflict rolls back only the
// rejected send, leaving the rest of the caller's batch intact. Conflicts
// return ErrSingletonConflict.
func (s *Store) SendTx(ctx context.Context, tx pgx.Tx, req core.SendRequest) (uuid.UUID, error) {
	if req.Queue == "" {
		return uuid.Nil, errors.New("queue name is required")
	}

	payload := req.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	var singletonKey *string
	if req.SingletonKey != "" {
		singletonKey = &req.SingletonKey
	}
	startAfter := req.StartAfter
	if startAfter.IsZero() {
		startAfter = s.timeProvider.Now()
	}

	// pgx nested Begin issues a SAVEPOINT.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin savepoint: %w", err)
	}

	var id uuid.UUID
	err = sp.QueryRow(ctx, `
		INSERT INTO queue_jobs (queue_name, payload, singleton_key, retry_limit, start_after)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id
	`, req.Queue, payload, singletonKey, startAfter.UTC()).Scan(&id)
	if err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrSingletonConflict
		}
		return uuid.Nil, fmt.Errorf("send job to %s: %w", req.Queue, err)
	}
	if err := sp.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit savepoint: %w", err)
	}

	// The notification fires when the outer transaction commits.
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, notifyChannel(req.Queue), id.String()); err != nil {
		return uuid.Nil, fmt.Errorf("notify %s: %w", req.Queue, err)
	}
	return id, nil
}

// reserveSQL atomically flips the oldest deliverable created jobs to active.
const reserveSQL = `
  WITH cte AS (
    SELECT id FROM queue_jobs
    WHERE queue_name = $1 AND state = 'created' AND start_after <= $2
    ORDER BY start_after ASC, created_at ASC
    LIMIT $3
    FOR UPDATE SKIP LOCKED
  )
  UPDATE queue_jobs q
  SET state = 'active', started_at = $2
  FROM cte
  WHERE q.id = cte.id
  RETURNING q.id, q.queue_name, q.payload, q.singleton_key, q.created_at, q.started_at`

// Reserve dequeues up to batch deliverable jobs from one queue, marking them
// active. Returns ErrNoJobsAvailable when the queue has nothing deliverable.
func (s *Store) Reserve(ctx context.Context, queue string, batch int) ([]core.Job, error) {
	if batch <= 0 {
		batch = 1
	}

	var jobs []core.Job
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, reserveSQL, queue, s.timeProvider.Now().UTC(), batch)
			if err != nil {
				return fmt.Errorf("reserve jobs: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var (
					job          core.Job
					singletonKey sql.NullString
					startedAt    sql.NullTime
				)
				if err := rows.Scan(&job.ID, &job.Queue, &job.Payload, &singletonKey, &job.CreatedAt, &startedAt); err != nil {
					return fmt.Errorf("scan reserved job: %w", err)
				}
				if singletonKey.Valid {
					job.SingletonKey = singletonKey.String
				}
				if startedAt.Valid {
					job.StartedAt = startedAt.Time
				}
				jobs = append(jobs, job)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNoJobsAvailable
	}
	return jobs, nil
}

// Complete marks an active job completed. Completion frees the job's
// singleton slot, so a follow-up send for the same key succeeds.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.finish(ctx, id, StateCompleted)
}

// Fail marks an active job failed. The queue never retries; the schedule
// re-enqueues on the next due interval.
func (s *Store) Fail(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.finish(ctx, id, StateFailed)
}

// Cancel marks an active job cancelled.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.finish(ctx, id, StateCancelled)
}

func (s *Store) finish(ctx context.Context, id uuid.UUID, state string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE queue_jobs
		SET state = $2, completed_at = $3
		WHERE id = $1 AND state = 'active'
	`, id, state, s.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark job %s %s: %w", id, state, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark job %s %s: rows affected: %w", id, state, err)
	}
	return affected > 0, nil
}

// WaitForNotification blocks until a send notification arrives for the queue
// or the context ends. Callers treat it purely as a wakeup hint; the polling
// interval remains the correctness backstop.
func (s *Store) WaitForNotification(ctx context.Context, queue string) error {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	channel := notifyChannel(queue)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, err := conn.ExecContext(ctx, "LISTEN "+quoted); err != nil {
		return fmt.Errorf("listen %s: %w", channel, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type: %T", dc)
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// now exposes the store clock to sibling files.
func (s *Store) now() time.Time {
	return s.timeProvider.Now()
}
