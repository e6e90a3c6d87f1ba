// Package config defines the environment-driven configuration surface.
// Values load via github.com/caarlos0/env; Sanitize applies guardrails after
// loading.
package config

import "strings"

// Run modes for the probed process.
const (
	RunModeScheduler = "scheduler"
	RunModeWorker    = "worker"
	RunModeBoth      = "both"
)

// Queue engine modes. Anything other than ModePgqueue disables the service;
// the process logs and idles so a rollout can park instances.
const (
	ModePgqueue = "pgqueue"
	ModeOff     = "off"
)

// AppConfig is the top-level configuration, composed from the section files:
//   - database.go: Postgres and Redis
//   - scheduler.go: tick loop, catch-up, and probe rates
//   - worker.go: worker runtime, timeouts, mutex, gateway
//   - maintenance.go: blackout windows
//   - observability.go: StatsD metrics
type AppConfig struct {
	// RunMode selects which halves of the service run in this process.
	RunMode string `env:"RUN_MODE" envDefault:"both"`

	// Mode gates the whole service; see ModePgqueue.
	Mode string `env:"MODE" envDefault:"pgqueue"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Scheduler     SchedulerConfig
	Worker        WorkerConfig
	Maintenance   MaintenanceConfig
	Reaper        ReaperConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.RunMode = strings.ToLower(strings.TrimSpace(c.RunMode))
	switch c.RunMode {
	case RunModeScheduler, RunModeWorker, RunModeBoth:
	default:
		c.RunMode = RunModeBoth
	}

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode != ModePgqueue {
		c.Mode = ModeOff
	}

	c.Postgres.Sanitize()
	c.Scheduler.Sanitize()
	c.Worker.Sanitize()
	c.Maintenance.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
}

// Enabled reports whether the service should run at all.
func (c *AppConfig) Enabled() bool {
	return c.Mode == ModePgqueue
}

// SchedulerEnabled reports whether this process runs the scheduler loop.
func (c *AppConfig) SchedulerEnabled() bool {
	return c.Enabled() && (c.RunMode == RunModeScheduler || c.RunMode == RunModeBoth)
}

// WorkerEnabled reports whether this process runs queue workers.
func (c *AppConfig) WorkerEnabled() bool {
	return c.Enabled() && (c.RunMode == RunModeWorker || c.RunMode == RunModeBoth)
}
