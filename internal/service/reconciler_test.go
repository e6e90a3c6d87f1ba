package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/mocks"
	"github.com/checkernet/probed/internal/service"
	"github.com/checkernet/probed/internal/testutil"
)

func reconcilerConfig() service.ReconcilerConfig {
	return service.ReconcilerConfig{
		DealInterval:             time.Minute,
		RetrievalInterval:        2 * time.Minute,
		MetricsInterval:          5 * time.Minute,
		MetricsCleanupInterval:   168 * time.Hour,
		ProvidersRefreshInterval: 6 * time.Hour,
		PhaseSpread:              10 * time.Minute,
	}
}

func TestReconciler_UpsertsProvidersAndGlobals(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	providers := mocks.NewMockProviderLister(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())
	now := tp.Now().UTC()

	providers.EXPECT().ListActiveProviders(gomock.Any()).Return([]string{"f01000", "f01001"}, nil)

	var upserts []core.UpsertScheduleParams
	schedules.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.UpsertScheduleParams) error {
			upserts = append(upserts, p)
			return nil
		}).Times(7)
	schedules.EXPECT().DeleteForInactiveProviders(gomock.Any(), []string{"f01000", "f01001"}).
		Return([]string{"f01002"}, nil)

	r := service.NewReconciler(providers, schedules, reconcilerConfig(), nil, tp)
	require.NoError(t, r.Reconcile(context.Background()))

	var perProvider, global int
	for _, p := range upserts {
		if p.JobType.PerProvider() {
			perProvider++
			assert.Contains(t, []string{"f01000", "f01001"}, p.SPAddress)
			// Initial phase lands inside the spread window.
			assert.False(t, p.NextRunAt.Before(now))
			assert.True(t, p.NextRunAt.Before(now.Add(10*time.Minute)))
		} else {
			global++
			assert.Equal(t, domain.GlobalAddress, p.SPAddress)
			assert.Equal(t, now, p.NextRunAt)
		}
	}
	assert.Equal(t, 4, perProvider)
	assert.Equal(t, 3, global)
}

func TestReconciler_StablePhasePerRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	providers := mocks.NewMockProviderLister(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())

	providers.EXPECT().ListActiveProviders(gomock.Any()).Return([]string{"f01000"}, nil).Times(2)
	schedules.EXPECT().DeleteForInactiveProviders(gomock.Any(), gomock.Any()).
		Return(nil, nil).Times(2)

	byKey := map[string][]time.Time{}
	schedules.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.UpsertScheduleParams) error {
			key := string(p.JobType) + "/" + p.SPAddress
			byKey[key] = append(byKey[key], p.NextRunAt)
			return nil
		}).Times(10)

	r := service.NewReconciler(providers, schedules, reconcilerConfig(), nil, tp)
	require.NoError(t, r.Reconcile(context.Background()))
	require.NoError(t, r.Reconcile(context.Background()))

	// The same row gets the same phase on every pass.
	for key, times := range byKey {
		require.Len(t, times, 2, key)
		assert.Equal(t, times[0], times[1], key)
	}
}

func TestReconciler_EmptyProviderSetSkipsPrune(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	providers := mocks.NewMockProviderLister(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)
	tp := data.NewFixedTimeProvider(testutil.TestTime())

	providers.EXPECT().ListActiveProviders(gomock.Any()).Return(nil, nil)
	// Only the global rows are touched; no prune happens.
	schedules.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	r := service.NewReconciler(providers, schedules, reconcilerConfig(), nil, tp)
	require.NoError(t, r.Reconcile(context.Background()))
}

func TestReconciler_ListErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	providers := mocks.NewMockProviderLister(ctrl)
	schedules := mocks.NewMockScheduleStore(ctrl)

	providers.EXPECT().ListActiveProviders(gomock.Any()).
		Return(nil, errors.New("provider source down"))

	r := service.NewReconciler(providers, schedules, reconcilerConfig(), nil, nil)
	require.Error(t, r.Reconcile(context.Background()))
}
