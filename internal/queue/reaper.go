package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations so concurrent metrics_cleanup
// runs on different hosts do not contend on the same delete batches.
const (
	advisoryLockReaperMajor  = 2000
	advisoryLockReaperDelete = 1
)

// DeleteFinishedParams bounds one reaper pass.
type DeleteFinishedParams struct {
	// MaxAge is how long finished jobs are retained after completed_at.
	MaxAge time.Duration
	// BatchSize limits rows deleted per call to keep lock times short.
	BatchSize int
}

// DeleteFinishedJobs removes completed, failed, and cancelled jobs older than
// MaxAge, at most BatchSize per call. Returns rows deleted; zero with no
// error when another reaper instance holds the advisory lock.
func (s *Store) DeleteFinishedJobs(ctx context.Context, params DeleteFinishedParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var locked bool
			if err := tx.QueryRow(ctx,
				"SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, advisoryLockReaperDelete,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			cutoff := s.now().Add(-params.MaxAge).UTC()
			tag, err := tx.Exec(ctx, `
				DELETE FROM queue_jobs
				WHERE id IN (
					SELECT id FROM queue_jobs
					WHERE state IN ('completed', 'failed', 'cancelled')
					  AND completed_at < $1
					ORDER BY completed_at
					LIMIT $2
				)
			`, cutoff, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete finished jobs: %w", err)
			}
			rowsAffected = tag.RowsAffected()
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
