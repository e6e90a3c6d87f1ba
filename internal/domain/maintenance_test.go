package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWindow(t *testing.T, s string) MaintenanceWindow {
	t.Helper()
	w, err := ParseMaintenanceWindow(s)
	require.NoError(t, err)
	return w
}

func TestParseMaintenanceWindow(t *testing.T) {
	w, err := ParseMaintenanceWindow("02:30")
	require.NoError(t, err)
	assert.Equal(t, 150, w.StartMinute)
	assert.Equal(t, "02:30", w.Label)

	for _, bad := range []string{"", "2", "24:00", "12:60", "ab:cd"} {
		_, err := ParseMaintenanceWindow(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEvaluateMaintenance_InsideWindow(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "10:00")}
	now := time.Date(2026, 3, 1, 10, 15, 42, 0, time.UTC)

	status := EvaluateMaintenance(now, windows, 30*time.Minute)

	require.True(t, status.Active)
	assert.Equal(t, "10:00", status.Window.Label)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), status.ResumeAt)
}

func TestEvaluateMaintenance_OutsideWindow(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "10:00")}

	for _, now := range []time.Time{
		time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	} {
		status := EvaluateMaintenance(now, windows, 30*time.Minute)
		assert.False(t, status.Active, "at %s", now)
	}
}

func TestEvaluateMaintenance_WrapsPastMidnight(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "23:45")}

	// Before midnight: the window ends on tomorrow's UTC day.
	now := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	status := EvaluateMaintenance(now, windows, 30*time.Minute)
	require.True(t, status.Active)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 15, 0, 0, time.UTC), status.ResumeAt)

	// After midnight: the same window ends on today's UTC day.
	now = time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC)
	status = EvaluateMaintenance(now, windows, 30*time.Minute)
	require.True(t, status.Active)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 15, 0, 0, time.UTC), status.ResumeAt)
}

func TestEvaluateMaintenance_ZeroDurationInactive(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "00:00")}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, EvaluateMaintenance(now, windows, 0).Active)
	assert.False(t, EvaluateMaintenance(now, windows, -time.Minute).Active)
}

func TestEvaluateMaintenance_MultipleWindows(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "02:00"), mustWindow(t, "14:00")}
	now := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)

	status := EvaluateMaintenance(now, windows, 15*time.Minute)
	require.True(t, status.Active)
	assert.Equal(t, "14:00", status.Window.Label)
}

func TestEvaluateMaintenance_NonUTCInput(t *testing.T) {
	windows := []MaintenanceWindow{mustWindow(t, "10:00")}
	loc := time.FixedZone("UTC+2", 2*3600)
	// 12:10 UTC+2 is 10:10 UTC, inside the window.
	now := time.Date(2026, 3, 1, 12, 10, 0, 0, loc)

	status := EvaluateMaintenance(now, windows, 30*time.Minute)
	assert.True(t, status.Active)
}
