package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCatchup_NotDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now.Add(10 * time.Second),
		Interval:  time.Minute,
		Max:       10,
		Spread:    time.Hour,
	})

	assert.Zero(t, plan.Total())
}

func TestPlanCatchup_ExactlyDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now,
		Interval:  time.Minute,
		Max:       10,
		Spread:    time.Hour,
	})

	require.Equal(t, 1, plan.Total())
	assert.Equal(t, time.Duration(0), plan.Offsets[0])
}

func TestPlanCatchup_SpreadOffsets(t *testing.T) {
	// Row is 300s overdue with a 60s interval: six firings are owed.
	// One goes out immediately, five are spread across an hour.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now.Add(-300 * time.Second),
		Interval:  60 * time.Second,
		Max:       10,
		Spread:    time.Hour,
	})

	require.Equal(t, 6, plan.Total())
	want := []time.Duration{
		0,
		600 * time.Second,  // ceil(1*3600/6)
		1200 * time.Second, // ceil(2*3600/6)
		1800 * time.Second,
		2400 * time.Second,
		3000 * time.Second,
	}
	assert.Equal(t, want, plan.Offsets)
}

func TestPlanCatchup_ClampedToMax(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now.Add(-24 * time.Hour),
		Interval:  time.Minute,
		Max:       10,
		Spread:    time.Hour,
	})

	assert.Equal(t, 10, plan.Total())
}

func TestPlanCatchup_ZeroSpreadSendsAllImmediately(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now.Add(-5 * time.Minute),
		Interval:  time.Minute,
		Max:       10,
		Spread:    0,
	})

	require.Equal(t, 6, plan.Total())
	for _, off := range plan.Offsets {
		assert.Equal(t, time.Duration(0), off)
	}
}

func TestPlanCatchup_OffsetsRoundUpToWholeSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanCatchup(CatchupParams{
		Now:       now,
		NextRunAt: now.Add(-2 * time.Minute),
		Interval:  time.Minute,
		Max:       10,
		Spread:    10 * time.Second,
	})

	// Three firings: one immediate, two delayed at ceil(10/3)=4s and ceil(20/3)=7s.
	require.Equal(t, 3, plan.Total())
	assert.Equal(t, []time.Duration{0, 4 * time.Second, 7 * time.Second}, plan.Offsets)
}

func TestNextRunAfter_PreservesPhase(t *testing.T) {
	next := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	advanced := NextRunAfter(next, time.Minute, 6)
	assert.Equal(t, next.Add(6*time.Minute), advanced)

	// The advance is always a whole multiple of the interval.
	assert.Zero(t, advanced.Sub(next)%time.Minute)
}

func TestNextRunAfter_NoSuccessesNoAdvance(t *testing.T) {
	next := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, next, NextRunAfter(next, time.Minute, 0))
}
