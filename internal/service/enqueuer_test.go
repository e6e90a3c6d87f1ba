package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
	"github.com/checkernet/probed/internal/service"
	"github.com/checkernet/probed/internal/testutil"
)

type enqueuerHarness struct {
	tp        *data.FixedTimeProvider
	schedules *data.ScheduleRepo
	queues    *queue.Store
	sink      *statsd.Recorder
	enqueuer  *service.Enqueuer
}

func newEnqueuerHarness(db *sql.DB, cfg service.EnqueuerConfig) *enqueuerHarness {
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	schedules := data.NewScheduleRepoWithTimeProvider(db, tp)
	queues := queue.NewStore(db, queue.StoreOptions{TimeProvider: tp})
	sink := statsd.NewRecorder()
	return &enqueuerHarness{
		tp:        tp,
		schedules: schedules,
		queues:    queues,
		sink:      sink,
		enqueuer:  service.NewEnqueuer(db, schedules, queues, sink, cfg, nil, tp),
	}
}

func TestEnqueuer_SendsDueRowAndAdvances(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		h := newEnqueuerHarness(db, service.EnqueuerConfig{BatchLimit: 10, CatchupMax: 5})
		ctx := context.Background()

		require.NoError(t, h.schedules.Upsert(ctx, core.UpsertScheduleParams{
			JobType:   domain.JobTypeDeal,
			SPAddress: "f01000",
			Interval:  time.Minute,
			NextRunAt: h.tp.Now(),
		}))

		stats, err := h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, service.EnqueueStats{DueRows: 1, Sent: 1}, stats)

		jobs, err := h.queues.Reserve(ctx, "deal", 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "f01000", jobs[0].SingletonKey)
		assert.JSONEq(t, `{"sp_address":"f01000","interval_seconds":60}`, string(jobs[0].Payload))

		// The row advanced by one interval, so it is no longer due.
		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.DueRows)

		assert.Equal(t, int64(1), h.sink.CountTotal("enqueue.attempts"))
	})
}

func TestEnqueuer_SingletonCollisionLeavesRowDue(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		h := newEnqueuerHarness(db, service.EnqueuerConfig{BatchLimit: 10, CatchupMax: 5})
		ctx := context.Background()

		require.NoError(t, h.schedules.Upsert(ctx, core.UpsertScheduleParams{
			JobType:   domain.JobTypeRetrieval,
			SPAddress: "f01000",
			Interval:  time.Minute,
			NextRunAt: h.tp.Now(),
		}))

		stats, err := h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, stats.Sent)

		// The row comes due again while the first job is still queued, so the
		// send collides and next_run_at stays put.
		h.tp.AddTime(time.Minute)
		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, service.EnqueueStats{DueRows: 1, Failed: 1}, stats)

		h.tp.AddTime(time.Second)
		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DueRows)
		assert.Equal(t, 1, stats.Failed)

		// Once the in-flight job clears, the next pass succeeds.
		jobs, err := h.queues.Reserve(ctx, "retrieval", 1)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		done, err := h.queues.Complete(ctx, jobs[0].ID)
		require.NoError(t, err)
		require.True(t, done)

		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Sent)
	})
}

func TestEnqueuer_CatchupSpreadsGlobalFirings(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		h := newEnqueuerHarness(db, service.EnqueuerConfig{
			BatchLimit:    10,
			CatchupMax:    10,
			CatchupSpread: time.Hour,
		})
		ctx := context.Background()

		// Three intervals behind: four firings owed.
		require.NoError(t, h.schedules.Upsert(ctx, core.UpsertScheduleParams{
			JobType:   domain.JobTypeMetrics,
			SPAddress: domain.GlobalAddress,
			Interval:  10 * time.Minute,
			NextRunAt: h.tp.Now().Add(-30 * time.Minute),
		}))

		stats, err := h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, service.EnqueueStats{DueRows: 1, Sent: 4}, stats)

		// One firing is immediate; the rest sit behind their spread delays.
		jobs, err := h.queues.Reserve(ctx, "metrics", 10)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)

		h.tp.AddTime(time.Hour)
		jobs, err = h.queues.Reserve(ctx, "metrics", 10)
		require.NoError(t, err)
		assert.Len(t, jobs, 3)

		// Advanced past every sent firing.
		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.DueRows)
	})
}

func TestEnqueuer_CatchupMaxCapsFirings(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		h := newEnqueuerHarness(db, service.EnqueuerConfig{BatchLimit: 10, CatchupMax: 2})
		ctx := context.Background()

		require.NoError(t, h.schedules.Upsert(ctx, core.UpsertScheduleParams{
			JobType:   domain.JobTypeMetrics,
			SPAddress: domain.GlobalAddress,
			Interval:  time.Minute,
			NextRunAt: h.tp.Now().Add(-time.Hour),
		}))

		stats, err := h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Sent)

		// Still behind; the next pass owes the remainder.
		stats, err = h.enqueuer.EnqueueDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DueRows)
		assert.Equal(t, 2, stats.Sent)
	})
}
