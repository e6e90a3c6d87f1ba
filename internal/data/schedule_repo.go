package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data/pgxutil"
	"github.com/checkernet/probed/internal/domain"
)

// ScheduleRepo provides database operations on job_schedule_state.
type ScheduleRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.ScheduleStore = (*ScheduleRepo)(nil)

// NewScheduleRepo creates a ScheduleRepo backed by the given pool.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewScheduleRepoWithTimeProvider creates a ScheduleRepo with a custom clock
// (useful for testing).
func NewScheduleRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ScheduleRepo {
	return &ScheduleRepo{DB: db, timeProvider: tp}
}

const scheduleColumns = `
  id,
  job_type,
  sp_address,
  interval_seconds,
  next_run_at,
  last_run_at,
  paused,
  updated_at
`

// Upsert inserts a schedule row or, when the (job_type, sp_address) row
// already exists, updates only interval_seconds and updated_at. Updates never
// touch paused, next_run_at, or last_run_at, so rate changes cannot reset the
// schedule phase or override an operator pause.
func (r *ScheduleRepo) Upsert(ctx context.Context, p core.UpsertScheduleParams) error {
	intervalSec := int64(p.Interval / time.Second)
	if intervalSec < 1 {
		return fmt.Errorf("upsert schedule %s/%s: interval %s below 1s", p.JobType, p.SPAddress, p.Interval)
	}

	query := `
		INSERT INTO job_schedule_state (job_type, sp_address, interval_seconds, next_run_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_type, sp_address) DO UPDATE SET
			interval_seconds = EXCLUDED.interval_seconds,
			updated_at = EXCLUDED.updated_at
	`

	now := r.timeProvider.Now().UTC()
	if _, err := r.DB.ExecContext(ctx, query,
		string(p.JobType), p.SPAddress, intervalSec, p.NextRunAt.UTC(), now,
	); err != nil {
		return fmt.Errorf("upsert schedule %s/%s: %w", p.JobType, p.SPAddress, err)
	}
	return nil
}

// FindDueTx selects unpaused rows whose next_run_at has passed, oldest first,
// locking each selected row for the life of the caller's transaction and
// skipping rows another scheduler already holds.
func (r *ScheduleRepo) FindDueTx(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]domain.ScheduleRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT ` + scheduleColumns + `
		FROM job_schedule_state
		WHERE paused = false AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	due, err := pgx.CollectRows(rows, rowToSchedule)
	if err != nil {
		return nil, fmt.Errorf("collect due schedules: %w", err)
	}
	return due, nil
}

// AdvanceTx records a due row's enqueue outcome inside the transaction that
// locked it. next_run_at and last_run_at move together or not at all.
func (r *ScheduleRepo) AdvanceTx(ctx context.Context, tx pgx.Tx, p core.AdvanceScheduleParams) error {
	query := `
		UPDATE job_schedule_state
		SET next_run_at = $2, last_run_at = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, p.ID, p.NextRunAt.UTC(), p.LastRunAt.UTC(), r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("advance schedule %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("advance schedule %d: %w", p.ID, ErrScheduleNotFound)
	}
	return nil
}

// DeleteForInactiveProviders removes per-provider deal/retrieval rows whose
// sp_address is not in the active set, returning the distinct addresses
// removed. An empty active set is rejected with ErrEmptyActiveSet; it means
// the provider source is unknown, not that every provider departed.
func (r *ScheduleRepo) DeleteForInactiveProviders(ctx context.Context, active []string) ([]string, error) {
	if len(active) == 0 {
		return nil, ErrEmptyActiveSet
	}

	query := `
		DELETE FROM job_schedule_state
		WHERE job_type IN ($1, $2)
		  AND sp_address <> ''
		  AND sp_address <> ALL($3::text[])
		RETURNING sp_address
	`

	var removed []string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query,
			string(domain.JobTypeDeal), string(domain.JobTypeRetrieval), active,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		seen := make(map[string]struct{})
		for rows.Next() {
			var addr string
			if err := rows.Scan(&addr); err != nil {
				return err
			}
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			removed = append(removed, addr)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("delete inactive provider schedules: %w", err)
	}
	return removed, nil
}

// SetPaused flips the operator-owned paused flag on one row.
func (r *ScheduleRepo) SetPaused(ctx context.Context, jobType domain.JobType, spAddress string, paused bool) error {
	query := `
		UPDATE job_schedule_state
		SET paused = $3, updated_at = $4
		WHERE job_type = $1 AND sp_address = $2
	`

	res, err := r.DB.ExecContext(ctx, query, string(jobType), spAddress, paused, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("set paused %s/%s: %w", jobType, spAddress, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set paused %s/%s: rows affected: %w", jobType, spAddress, err)
	}
	if affected == 0 {
		return fmt.Errorf("set paused %s/%s: %w", jobType, spAddress, ErrScheduleNotFound)
	}
	return nil
}

// List returns all schedule rows ordered by job type then address.
func (r *ScheduleRepo) List(ctx context.Context) ([]domain.ScheduleRow, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM job_schedule_state
		ORDER BY job_type ASC, sp_address ASC
	`

	var out []domain.ScheduleRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := pgx.CollectRows(rows, rowToSchedule)
		if err != nil {
			return err
		}
		out = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return out, nil
}

// CountPaused returns the number of paused rows per job type.
func (r *ScheduleRepo) CountPaused(ctx context.Context) ([]domain.PausedCount, error) {
	query := `
		SELECT job_type, COUNT(*) AS count
		FROM job_schedule_state
		WHERE paused = true
		GROUP BY job_type
		ORDER BY job_type ASC
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count paused schedules: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []domain.PausedCount
	for rows.Next() {
		var c domain.PausedCount
		var jobType string
		if err := rows.Scan(&jobType, &c.Count); err != nil {
			return nil, fmt.Errorf("scan paused count: %w", err)
		}
		c.JobType = domain.JobType(jobType)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paused counts: %w", err)
	}
	return counts, nil
}

// scheduleRow mirrors the job_schedule_state columns for pgx struct scanning.
type scheduleRow struct {
	ID              int64        `db:"id"`
	JobType         string       `db:"job_type"`
	SPAddress       string       `db:"sp_address"`
	IntervalSeconds int64        `db:"interval_seconds"`
	NextRunAt       time.Time    `db:"next_run_at"`
	LastRunAt       sql.NullTime `db:"last_run_at"`
	Paused          bool         `db:"paused"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func (r *scheduleRow) toDomain() domain.ScheduleRow {
	row := domain.ScheduleRow{
		ID:        r.ID,
		JobType:   domain.JobType(r.JobType),
		SPAddress: r.SPAddress,
		Interval:  time.Duration(r.IntervalSeconds) * time.Second,
		NextRunAt: r.NextRunAt,
		Paused:    r.Paused,
		UpdatedAt: r.UpdatedAt,
	}
	if r.LastRunAt.Valid {
		t := r.LastRunAt.Time
		row.LastRunAt = &t
	}
	return row
}

func rowToSchedule(row pgx.CollectableRow) (domain.ScheduleRow, error) {
	dbRow, err := pgx.RowToStructByName[scheduleRow](row)
	if err != nil {
		return domain.ScheduleRow{}, fmt.Errorf("scan schedule row: %w", err)
	}
	return dbRow.toDomain(), nil
}
