package main

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/domain"
)

func TestParseScheduleTargetFlags(t *testing.T) {
	opts, err := parseScheduleTargetFlags("pause", []string{"--job-type", "deal", "--sp", "f01234"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeDeal, opts.JobType)
	assert.Equal(t, "f01234", opts.SPAddress)

	// Global job types take no provider address.
	opts, err = parseScheduleTargetFlags("pause", []string{"--job-type", "metrics"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeMetrics, opts.JobType)
	assert.Empty(t, opts.SPAddress)

	_, err = parseScheduleTargetFlags("pause", []string{"--job-type", "deal"})
	require.Error(t, err)

	_, err = parseScheduleTargetFlags("pause", []string{"--job-type", "metrics", "--sp", "f01234"})
	require.Error(t, err)

	_, err = parseScheduleTargetFlags("pause", []string{"--job-type", "bogus"})
	require.Error(t, err)
}

func TestFilterScheduleRows(t *testing.T) {
	rows := []domain.ScheduleRow{
		{JobType: domain.JobTypeDeal, SPAddress: "f01", Paused: true},
		{JobType: domain.JobTypeDeal, SPAddress: "f02"},
		{JobType: domain.JobTypeMetrics},
	}

	filtered := filterScheduleRows(rows, scheduleListOptions{JobType: "deal"})
	require.Len(t, filtered, 2)

	filtered = filterScheduleRows(rows, scheduleListOptions{PausedOnly: true})
	require.Len(t, filtered, 1)
	assert.Equal(t, "f01", filtered[0].SPAddress)
}

func TestPrintScheduleRowsRendersGlobalRows(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	defer func() {
		os.Stdout = oldStdout
	}()

	os.Stdout = w

	rows := []domain.ScheduleRow{
		{
			JobType:   domain.JobTypeMetrics,
			Interval:  5 * time.Minute,
			NextRunAt: time.Now().Add(time.Minute),
		},
		{
			JobType:   domain.JobTypeDeal,
			SPAddress: "f01234",
			Interval:  time.Hour,
			NextRunAt: time.Now().Add(-time.Minute),
		},
	}
	err = printScheduleRows(rows, len(rows))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	os.Stdout = oldStdout

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	outStr := string(output)
	assert.Contains(t, outStr, "(global)")
	assert.Contains(t, outStr, "f01234")
	assert.Contains(t, outStr, "overdue")
	assert.Contains(t, outStr, "Showing 2 of 2 schedule rows")
}

func TestRenderDueIn(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "paused", renderDueIn(now, domain.ScheduleRow{Paused: true, NextRunAt: now}))
	assert.Equal(t, "2m0s", renderDueIn(now, domain.ScheduleRow{NextRunAt: now.Add(2 * time.Minute)}))
	assert.Equal(t, "overdue 30s", renderDueIn(now, domain.ScheduleRow{NextRunAt: now.Add(-30 * time.Second)}))
}
