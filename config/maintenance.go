package config

import (
	"time"

	"github.com/checkernet/probed/internal/domain"
)

// MaintenanceConfig declares recurring daily blackout windows (UTC) during
// which dequeued jobs are deferred instead of run.
type MaintenanceConfig struct {
	// WindowsUTC is a comma list of "HH:MM" window start times.
	WindowsUTC []string `env:"MAINTENANCE_WINDOWS_UTC" envDefault:""`

	// WindowMinutes is the duration of every window. Zero disables the
	// feature.
	WindowMinutes int `env:"MAINTENANCE_WINDOW_MINUTES" envDefault:"0"`
}

// Sanitize applies guardrails to maintenance settings.
func (c *MaintenanceConfig) Sanitize() {
	if c.WindowMinutes < 0 {
		c.WindowMinutes = 0
	}
}

// Windows parses the configured start times.
func (c *MaintenanceConfig) Windows() ([]domain.MaintenanceWindow, error) {
	return domain.ParseMaintenanceWindows(c.WindowsUTC)
}

// WindowDuration returns the window length as a duration.
func (c *MaintenanceConfig) WindowDuration() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// ReaperConfig controls retention for finished queue jobs.
type ReaperConfig struct {
	// RetentionHours is how long completed/failed/cancelled jobs are kept.
	RetentionHours int `env:"REAPER_RETENTION_HOURS" envDefault:"168"`

	// BatchSize bounds one delete pass.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper settings.
func (c *ReaperConfig) Sanitize() {
	if c.RetentionHours < 1 {
		c.RetentionHours = 168
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1000
	}
}

// Retention returns the retention window as a duration.
func (c *ReaperConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}
