package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrEmptyActiveSet rejects schedule deletion against an empty provider
	// set. An empty set means "unknown", never "all providers departed".
	ErrEmptyActiveSet = errors.New("active provider set is empty")

	// ErrScheduleNotFound reports a pause/resume against a missing row.
	ErrScheduleNotFound = errors.New("schedule not found")
)
