package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/providers"
	"github.com/checkernet/probed/internal/queue"
	"github.com/checkernet/probed/internal/testutil"
)

func TestTick_SingleFlight(t *testing.T) {
	tick := NewTick(nil, nil, nil, nil, nil)
	tick.running.Store(true)

	_, err := tick.Run(context.Background())
	require.ErrorIs(t, err, ErrTickInProgress)

	// A finished tick releases the slot.
	tick.running.Store(false)
	assert.True(t, tick.running.CompareAndSwap(false, true))
}

func TestTick_EndToEnd(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := data.NewFixedTimeProvider(testutil.TestTime())
		sink := statsd.NewRecorder()

		providerStore := providers.NewStoreWithTimeProvider(db, tp)
		require.NoError(t, providerStore.Add(ctx, "f01000"))

		schedules := data.NewScheduleRepoWithTimeProvider(db, tp)
		queues := queue.NewStore(db, queue.StoreOptions{TimeProvider: tp})

		reconciler := NewReconciler(providerStore, schedules, ReconcilerConfig{
			DealInterval:             time.Minute,
			RetrievalInterval:        time.Minute,
			MetricsInterval:          5 * time.Minute,
			MetricsCleanupInterval:   168 * time.Hour,
			ProvidersRefreshInterval: 6 * time.Hour,
		}, nil, tp)
		enqueuer := NewEnqueuer(db, schedules, queues, sink, EnqueuerConfig{
			BatchLimit: 50,
			CatchupMax: 5,
		}, nil, tp)
		collector := NewCollector(queues, schedules, sink, nil, tp)

		tick := NewTick(reconciler, enqueuer, collector, nil, tp)
		outcome, err := tick.Run(ctx)
		require.NoError(t, err)

		// Two per-provider rows plus three globals, all freshly due.
		assert.Equal(t, 5, outcome.DueRows)
		assert.Equal(t, 5, outcome.Sent)
		assert.Zero(t, outcome.Failed)

		depth, ok := sink.LastGauge("queue.jobs", map[string]string{"queue": "deal", "state": "created"})
		require.True(t, ok)
		assert.Equal(t, float64(1), depth.Value)

		// A second tick finds nothing due and the queues unchanged.
		outcome, err = tick.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, outcome.DueRows)
		assert.Zero(t, outcome.Sent)
	})
}
