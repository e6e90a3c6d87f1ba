package domain

import "time"

// GlobalAddress is the sp_address sentinel used by global schedule rows.
const GlobalAddress = ""

// ScheduleRow is one row of job_schedule_state: the declarative intent that a
// job of the given type should fire every Interval for the given target.
type ScheduleRow struct {
	ID        int64
	JobType   JobType
	SPAddress string
	Interval  time.Duration
	NextRunAt time.Time
	LastRunAt *time.Time
	Paused    bool
	UpdatedAt time.Time
}

// Global reports whether the row is a global (non-per-provider) schedule.
func (r ScheduleRow) Global() bool {
	return r.SPAddress == GlobalAddress
}

// MutexRow is one row of job_mutex: an advisory claim that a worker is
// currently running a job for the given provider.
type MutexRow struct {
	SPAddress  string
	JobType    JobType
	JobID      string
	Hostname   string
	AcquiredAt time.Time
	UpdatedAt  time.Time
}

// Stale reports whether the claim is old enough to be stolen.
func (m MutexRow) Stale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(m.AcquiredAt) > staleAfter
}

// QueueStateCount is a (queue, state) occupancy figure read back from the
// durable queue for metrics reporting.
type QueueStateCount struct {
	Queue string
	State string
	Count int64
}

// QueueAge is the age of the oldest job in a given queue and state.
type QueueAge struct {
	Queue      string
	AgeSeconds float64
}

// PausedCount is the number of paused schedule rows for a job type.
type PausedCount struct {
	JobType JobType
	Count   int64
}
