package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// MaintenanceWindow is a recurring daily blackout window in UTC.
type MaintenanceWindow struct {
	// Label is the configured start time as given ("02:30"), kept for logs.
	Label string
	// StartMinute is the window's start as a minute of the UTC day, 0-1439.
	StartMinute int
}

// MaintenanceStatus is the result of evaluating the windows at an instant.
type MaintenanceStatus struct {
	Active bool
	Window MaintenanceWindow
	// ResumeAt is the instant the matched window ends. Zero when inactive.
	ResumeAt time.Time
}

// ParseMaintenanceWindow parses an "HH:MM" UTC start time.
func ParseMaintenanceWindow(s string) (MaintenanceWindow, error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: bad hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q: bad minute", s)
	}
	return MaintenanceWindow{Label: trimmed, StartMinute: hour*60 + minute}, nil
}

// ParseMaintenanceWindows parses a list of "HH:MM" UTC start times.
func ParseMaintenanceWindows(values []string) ([]MaintenanceWindow, error) {
	windows := make([]MaintenanceWindow, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		w, err := ParseMaintenanceWindow(v)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// EvaluateMaintenance reports whether now (interpreted in UTC) falls inside
// any window of the given duration, and if so when the window ends.
//
// A window [start, start+duration) may wrap past midnight; in that case the
// resume instant lands on tomorrow's UTC day when now is in the pre-midnight
// part, and on today's when now is in the post-midnight part.
func EvaluateMaintenance(now time.Time, windows []MaintenanceWindow, duration time.Duration) MaintenanceStatus {
	durationMin := int(duration / time.Minute)
	if durationMin <= 0 {
		return MaintenanceStatus{}
	}

	utc := now.UTC()
	minuteOfDay := utc.Hour()*60 + utc.Minute()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	for _, w := range windows {
		end := w.StartMinute + durationMin
		if end <= minutesPerDay {
			if minuteOfDay >= w.StartMinute && minuteOfDay < end {
				return MaintenanceStatus{
					Active:   true,
					Window:   w,
					ResumeAt: midnight.Add(time.Duration(end) * time.Minute),
				}
			}
			continue
		}

		// Window wraps past midnight.
		endTomorrow := end - minutesPerDay
		switch {
		case minuteOfDay >= w.StartMinute:
			return MaintenanceStatus{
				Active:   true,
				Window:   w,
				ResumeAt: midnight.AddDate(0, 0, 1).Add(time.Duration(endTomorrow) * time.Minute),
			}
		case minuteOfDay < endTomorrow:
			return MaintenanceStatus{
				Active:   true,
				Window:   w,
				ResumeAt: midnight.Add(time.Duration(endTomorrow) * time.Minute),
			}
		}
	}

	return MaintenanceStatus{}
}
