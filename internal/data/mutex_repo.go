package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/domain"
)

// MutexRepo provides database operations on job_mutex, the per-provider
// advisory lock table the worker runtime uses as defense in depth behind the
// queue's singleton policy.
type MutexRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.MutexStore = (*MutexRepo)(nil)

// NewMutexRepo creates a MutexRepo backed by the given pool.
func NewMutexRepo(db *sql.DB) *MutexRepo {
	return &MutexRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewMutexRepoWithTimeProvider creates a MutexRepo with a custom clock.
func NewMutexRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *MutexRepo {
	return &MutexRepo{DB: db, timeProvider: tp}
}

// Acquire claims the provider mutex. The upsert writes when no row exists for
// the address or when the existing claim's acquired_at has aged past
// StaleAfter; a live claim leaves the upsert a no-op and Acquire returns
// false without error.
func (r *MutexRepo) Acquire(ctx context.Context, p core.AcquireMutexParams) (bool, error) {
	now := r.timeProvider.Now().UTC()
	staleBefore := now.Add(-p.StaleAfter)

	query := `
		INSERT INTO job_mutex (sp_address, job_type, job_id, hostname, acquired_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (sp_address) DO UPDATE SET
			job_type = EXCLUDED.job_type,
			job_id = EXCLUDED.job_id,
			hostname = EXCLUDED.hostname,
			acquired_at = EXCLUDED.acquired_at,
			updated_at = EXCLUDED.updated_at
		WHERE job_mutex.acquired_at < $6
	`

	res, err := r.DB.ExecContext(ctx, query,
		p.SPAddress, string(p.JobType), p.JobID, p.Hostname, now, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("acquire mutex %s: %w", p.SPAddress, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire mutex %s: rows affected: %w", p.SPAddress, err)
	}
	return affected > 0, nil
}

// Release deletes the claim only when it still carries the caller's job id.
// A late release after a successor stole the mutex is a clean no-op.
func (r *MutexRepo) Release(ctx context.Context, spAddress, jobID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM job_mutex WHERE sp_address = $1 AND job_id = $2`,
		spAddress, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("release mutex %s: %w", spAddress, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release mutex %s: rows affected: %w", spAddress, err)
	}
	return affected > 0, nil
}

// ForceRelease deletes the claim regardless of owner. Operator use only.
func (r *MutexRepo) ForceRelease(ctx context.Context, spAddress string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_mutex WHERE sp_address = $1`, spAddress)
	if err != nil {
		return false, fmt.Errorf("force release mutex %s: %w", spAddress, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("force release mutex %s: rows affected: %w", spAddress, err)
	}
	return affected > 0, nil
}

// List returns all current claims, oldest first.
func (r *MutexRepo) List(ctx context.Context) ([]domain.MutexRow, error) {
	query := `
		SELECT sp_address, job_type, job_id, hostname, acquired_at, updated_at
		FROM job_mutex
		ORDER BY acquired_at ASC
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list mutexes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.MutexRow
	for rows.Next() {
		var m domain.MutexRow
		var jobType string
		if err := rows.Scan(&m.SPAddress, &jobType, &m.JobID, &m.Hostname, &m.AcquiredAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mutex row: %w", err)
		}
		m.JobType = domain.JobType(jobType)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutex rows: %w", err)
	}
	return out, nil
}

// Get fetches the claim for one address.
func (r *MutexRepo) Get(ctx context.Context, spAddress string) (domain.MutexRow, bool, error) {
	query := `
		SELECT sp_address, job_type, job_id, hostname, acquired_at, updated_at
		FROM job_mutex
		WHERE sp_address = $1
	`

	var m domain.MutexRow
	var jobType string
	err := r.DB.QueryRowContext(ctx, query, spAddress).Scan(
		&m.SPAddress, &jobType, &m.JobID, &m.Hostname, &m.AcquiredAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.MutexRow{}, false, nil
	}
	if err != nil {
		return domain.MutexRow{}, false, fmt.Errorf("get mutex %s: %w", spAddress, err)
	}
	m.JobType = domain.JobType(jobType)
	return m, true, nil
}
