package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/testutil"
)

func TestMutexRepo_AcquireAndContention(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewMutexRepoWithTimeProvider(db, tp)
		ctx := context.Background()

		acquired, err := repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-1",
			Hostname:   "worker-a",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		assert.True(t, acquired)

		// A live claim blocks a second acquirer.
		acquired, err = repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeRetrieval,
			JobID:      "job-2",
			Hostname:   "worker-b",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		assert.False(t, acquired)

		// Different provider is independent.
		acquired, err = repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01001",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-3",
			Hostname:   "worker-b",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		assert.True(t, acquired)
	})
}

func TestMutexRepo_StaleClaimIsStolen(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewMutexRepoWithTimeProvider(db, tp)
		ctx := context.Background()

		acquired, err := repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-1",
			Hostname:   "worker-a",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		require.True(t, acquired)

		// Just inside the stale window: still held.
		tp.AddTime(29 * time.Minute)
		acquired, err = repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-2",
			Hostname:   "worker-b",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		assert.False(t, acquired)

		// Past the stale window: the claim is stolen.
		tp.AddTime(2 * time.Minute)
		acquired, err = repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-2",
			Hostname:   "worker-b",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		assert.True(t, acquired)

		row, found, err := repo.Get(ctx, "f01000")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "job-2", row.JobID)
		assert.Equal(t, "worker-b", row.Hostname)
	})
}

func TestMutexRepo_ReleaseRequiresOwningJobID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewMutexRepo(db)
		ctx := context.Background()

		acquired, err := repo.Acquire(ctx, core.AcquireMutexParams{
			SPAddress:  "f01000",
			JobType:    domain.JobTypeDeal,
			JobID:      "job-1",
			Hostname:   "worker-a",
			StaleAfter: 30 * time.Minute,
		})
		require.NoError(t, err)
		require.True(t, acquired)

		// A stale releaser with a different job id must not free the claim.
		released, err := repo.Release(ctx, "f01000", "job-0")
		require.NoError(t, err)
		assert.False(t, released)

		_, found, err := repo.Get(ctx, "f01000")
		require.NoError(t, err)
		assert.True(t, found)

		released, err = repo.Release(ctx, "f01000", "job-1")
		require.NoError(t, err)
		assert.True(t, released)

		_, found, err = repo.Get(ctx, "f01000")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMutexRepo_ForceReleaseAndList(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewMutexRepo(db)
		ctx := context.Background()

		for i, addr := range []string{"f01000", "f01001"} {
			acquired, err := repo.Acquire(ctx, core.AcquireMutexParams{
				SPAddress:  addr,
				JobType:    domain.JobTypeDeal,
				JobID:      "job-" + addr,
				Hostname:   "worker-a",
				StaleAfter: 30 * time.Minute,
			})
			require.NoError(t, err, "acquire %d", i)
			require.True(t, acquired)
		}

		rows, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		released, err := repo.ForceRelease(ctx, "f01000")
		require.NoError(t, err)
		assert.True(t, released)

		released, err = repo.ForceRelease(ctx, "f01000")
		require.NoError(t, err)
		assert.False(t, released)

		rows, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "f01001", rows[0].SPAddress)
	})
}
