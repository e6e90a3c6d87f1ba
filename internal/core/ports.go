// Package core defines the ports shared between the scheduler, the worker
// runtime, and the data layer.
package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/domain"
)

// Job is one dequeued unit of work handed to a Handler.
type Job struct {
	ID           uuid.UUID
	Queue        string
	Payload      []byte
	SingletonKey string
	CreatedAt    time.Time
	StartedAt    time.Time
}

// SendRequest describes one job to place on the durable queue.
type SendRequest struct {
	Queue   string
	Payload []byte
	// SingletonKey, when non-empty, limits the queue to one queued-or-active
	// job for the key. Additional sends are rejected while one is in flight.
	SingletonKey string
	// StartAfter is the earliest delivery instant. Zero means deliver now.
	StartAfter time.Time
}

// Enqueuer places jobs on the durable queue outside any caller transaction.
type Enqueuer interface {
	Send(ctx context.Context, req SendRequest) (uuid.UUID, error)
}

// TxEnqueuer places jobs on the durable queue inside the caller's transaction
// so the send commits or rolls back with the rest of the batch.
type TxEnqueuer interface {
	SendTx(ctx context.Context, tx pgx.Tx, req SendRequest) (uuid.UUID, error)
}

// UpsertScheduleParams carries one schedule row to insert-or-update.
type UpsertScheduleParams struct {
	JobType   domain.JobType
	SPAddress string
	Interval  time.Duration
	// NextRunAt applies only when the row is inserted. Updates keep the
	// existing next_run_at so rate changes never reset the schedule phase.
	NextRunAt time.Time
}

// AdvanceScheduleParams records the outcome of a due row's enqueue batch.
type AdvanceScheduleParams struct {
	ID        int64
	NextRunAt time.Time
	LastRunAt time.Time
}

// ScheduleStore is typed access to job_schedule_state.
type ScheduleStore interface {
	Upsert(ctx context.Context, p UpsertScheduleParams) error

	// FindDueTx selects unpaused rows with next_run_at <= now, ascending,
	// locking each row and skipping rows other transactions hold.
	FindDueTx(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]domain.ScheduleRow, error)

	// AdvanceTx updates next_run_at and last_run_at inside the same
	// transaction that locked the row.
	AdvanceTx(ctx context.Context, tx pgx.Tx, p AdvanceScheduleParams) error

	// DeleteForInactiveProviders removes per-provider deal/retrieval rows
	// whose sp_address is not in active, returning the removed addresses.
	// It errors on an empty active set rather than deleting everything.
	DeleteForInactiveProviders(ctx context.Context, active []string) ([]string, error)

	CountPaused(ctx context.Context) ([]domain.PausedCount, error)
}

// AcquireMutexParams identifies one provider-mutex claim attempt.
type AcquireMutexParams struct {
	SPAddress string
	JobType   domain.JobType
	JobID     string
	Hostname  string
	// StaleAfter is how old an existing claim must be before it may be stolen.
	StaleAfter time.Duration
}

// MutexStore is typed access to job_mutex.
type MutexStore interface {
	// Acquire succeeds when no claim exists for the address or the existing
	// claim is stale. Returns false without error on contention.
	Acquire(ctx context.Context, p AcquireMutexParams) (bool, error)

	// Release deletes the claim only when it carries the caller's job id,
	// so a late releaser cannot free a successor's claim.
	Release(ctx context.Context, spAddress, jobID string) (bool, error)
}

// ProviderLister yields the current set of active provider addresses.
type ProviderLister interface {
	ListActiveProviders(ctx context.Context) ([]string, error)
}

// QueueIntrospector reads occupancy figures back from the durable queue for
// the metrics collector.
type QueueIntrospector interface {
	CountStates(ctx context.Context, states []string) ([]domain.QueueStateCount, error)
	MinAgeByState(ctx context.Context, state string, now time.Time) ([]domain.QueueAge, error)
}

// Handler runs one dequeued job. The context carries the per-job-type
// timeout; handlers that honor cancellation may return early with ctx.Err().
type Handler interface {
	Type() domain.JobType
	Run(ctx context.Context, job Job) error
}
