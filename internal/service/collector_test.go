package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/mocks"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
	"github.com/checkernet/probed/internal/service"
	"github.com/checkernet/probed/internal/testutil"
)

func TestCollector_EmitsDepthsAgesAndPaused(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queues := mocks.NewMockQueueIntrospector(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	rec := statsd.NewRecorder()

	queues.EXPECT().CountStates(gomock.Any(), []string{queue.StateCreated, queue.StateActive}).
		Return([]domain.QueueStateCount{
			{Queue: "deal", State: queue.StateCreated, Count: 3},
			{Queue: "retrieval", State: queue.StateActive, Count: 1},
		}, nil)
	queues.EXPECT().MinAgeByState(gomock.Any(), queue.StateCreated, gomock.Any()).
		Return([]domain.QueueAge{{Queue: "deal", AgeSeconds: 90}}, nil)
	queues.EXPECT().MinAgeByState(gomock.Any(), queue.StateActive, gomock.Any()).
		Return([]domain.QueueAge{{Queue: "retrieval", AgeSeconds: 5}}, nil)
	schedules.EXPECT().CountPaused(gomock.Any()).
		Return([]domain.PausedCount{{JobType: domain.JobTypeDeal, Count: 2}}, nil)

	c := service.NewCollector(queues, schedules, rec, nil, tp)
	require.NoError(t, c.Collect(context.Background()))

	depth, ok := rec.LastGauge("queue.jobs", map[string]string{"queue": "deal", "state": "created"})
	require.True(t, ok)
	assert.Equal(t, float64(3), depth.Value)

	// Queues with no rows are reset to zero rather than left stale.
	depth, ok = rec.LastGauge("queue.jobs", map[string]string{"queue": "metrics", "state": "active"})
	require.True(t, ok)
	assert.Zero(t, depth.Value)

	age, ok := rec.LastGauge("queue.oldest_queued_age_seconds", map[string]string{"queue": "deal"})
	require.True(t, ok)
	assert.Equal(t, float64(90), age.Value)

	age, ok = rec.LastGauge("queue.oldest_in_flight_age_seconds", map[string]string{"queue": "retrieval"})
	require.True(t, ok)
	assert.Equal(t, float64(5), age.Value)

	age, ok = rec.LastGauge("queue.oldest_queued_age_seconds", map[string]string{"queue": "retrieval"})
	require.True(t, ok)
	assert.Zero(t, age.Value)

	paused, ok := rec.LastGauge("schedule.paused", map[string]string{"job_type": "deal"})
	require.True(t, ok)
	assert.Equal(t, float64(2), paused.Value)

	paused, ok = rec.LastGauge("schedule.paused", map[string]string{"job_type": "retrieval"})
	require.True(t, ok)
	assert.Zero(t, paused.Value)
}

func TestCollector_WarnsWhenQueueTableEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queues := mocks.NewMockQueueIntrospector(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	rec := statsd.NewRecorder()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	queues.EXPECT().CountStates(gomock.Any(), []string{queue.StateCreated, queue.StateActive}).
		Return(nil, nil)
	queues.EXPECT().MinAgeByState(gomock.Any(), queue.StateCreated, gomock.Any()).
		Return(nil, nil)
	queues.EXPECT().MinAgeByState(gomock.Any(), queue.StateActive, gomock.Any()).
		Return(nil, nil)
	schedules.EXPECT().CountPaused(gomock.Any()).Return(nil, nil)

	c := service.NewCollector(queues, schedules, rec, logger, tp)
	require.NoError(t, c.Collect(context.Background()))

	assert.Contains(t, logs.String(), "queue job table has no queued or active rows")

	// Gauges are still zero-filled rather than skipped.
	depth, ok := rec.LastGauge("queue.jobs", map[string]string{"queue": "deal", "state": "created"})
	require.True(t, ok)
	assert.Zero(t, depth.Value)
}
