package config

import "time"

// Fixed cadences for the global maintenance schedules.
const (
	// MetricsCleanupInterval is how often finished queue jobs are pruned.
	MetricsCleanupInterval = 168 * time.Hour
	// ProvidersRefreshInterval is how often the provider cache is rebuilt.
	ProvidersRefreshInterval = 6 * time.Hour
)

// SchedulerConfig controls the tick loop, catch-up policy, and probe rates.
type SchedulerConfig struct {
	// PollSeconds is the tick interval. Floor 1s.
	PollSeconds int `env:"SCHEDULER_POLL_SECONDS" envDefault:"10"`

	// BatchLimit caps due rows locked per tick.
	BatchLimit int `env:"SCHEDULER_BATCH_LIMIT" envDefault:"200"`

	// CatchupMaxEnqueue caps firings per row per tick.
	CatchupMaxEnqueue int `env:"CATCHUP_MAX_ENQUEUE" envDefault:"10"`

	// CatchupSpreadHours is the horizon over which delayed catch-up firings
	// are staggered.
	CatchupSpreadHours int `env:"CATCHUP_SPREAD_HOURS" envDefault:"1"`

	// SchedulePhaseSeconds staggers the first firing of new schedule rows.
	SchedulePhaseSeconds int `env:"SCHEDULE_PHASE_SECONDS" envDefault:"0"`

	// EnqueueJitterSeconds adds up to this much random delay to spread
	// firings.
	EnqueueJitterSeconds int `env:"ENQUEUE_JITTER_SECONDS" envDefault:"0"`

	// Target probe rates.
	DealsPerSPPerHour      float64 `env:"DEALS_PER_SP_PER_HOUR"      envDefault:"1"`
	RetrievalsPerSPPerHour float64 `env:"RETRIEVALS_PER_SP_PER_HOUR" envDefault:"1"`
	MetricsPerHour         float64 `env:"METRICS_PER_HOUR"           envDefault:"12"`
}

// Sanitize applies guardrails to scheduler settings.
func (c *SchedulerConfig) Sanitize() {
	if c.PollSeconds < 1 {
		c.PollSeconds = 1
	}
	if c.BatchLimit < 1 {
		c.BatchLimit = 200
	}
	if c.CatchupMaxEnqueue < 1 {
		c.CatchupMaxEnqueue = 1
	}
	if c.CatchupSpreadHours < 0 {
		c.CatchupSpreadHours = 0
	}
	if c.SchedulePhaseSeconds < 0 {
		c.SchedulePhaseSeconds = 0
	}
	if c.EnqueueJitterSeconds < 0 {
		c.EnqueueJitterSeconds = 0
	}
	if c.DealsPerSPPerHour <= 0 {
		c.DealsPerSPPerHour = 1
	}
	if c.RetrievalsPerSPPerHour <= 0 {
		c.RetrievalsPerSPPerHour = 1
	}
	if c.MetricsPerHour <= 0 {
		c.MetricsPerHour = 12
	}
}

// PollInterval returns the tick interval as a duration.
func (c *SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// CatchupSpread returns the spread horizon as a duration.
func (c *SchedulerConfig) CatchupSpread() time.Duration {
	return time.Duration(c.CatchupSpreadHours) * time.Hour
}

// PhaseSpread returns the initial phase window as a duration.
func (c *SchedulerConfig) PhaseSpread() time.Duration {
	return time.Duration(c.SchedulePhaseSeconds) * time.Second
}

// EnqueueJitter returns the jitter bound as a duration.
func (c *SchedulerConfig) EnqueueJitter() time.Duration {
	return time.Duration(c.EnqueueJitterSeconds) * time.Second
}
