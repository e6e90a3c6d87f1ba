// Package domain holds the scheduler's core types and pure decision logic.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// JobType identifies a class of scheduled work. Each job type maps 1:1 onto a
// durable queue of the same name.
type JobType string

const (
	// JobTypeDeal probes a storage provider by storing a test payload.
	JobTypeDeal JobType = "deal"
	// JobTypeRetrieval probes a storage provider by fetching a test payload.
	JobTypeRetrieval JobType = "retrieval"
	// JobTypeMetrics recomputes and publishes aggregate probe statistics.
	JobTypeMetrics JobType = "metrics"
	// JobTypeMetricsCleanup prunes old queue history.
	JobTypeMetricsCleanup JobType = "metrics_cleanup"
	// JobTypeProvidersRefresh refreshes the cached active provider set.
	JobTypeProvidersRefresh JobType = "providers_refresh"
)

// AllJobTypes returns every job type the scheduler knows about, in a stable order.
func AllJobTypes() []JobType {
	return []JobType{
		JobTypeDeal,
		JobTypeRetrieval,
		JobTypeMetrics,
		JobTypeMetricsCleanup,
		JobTypeProvidersRefresh,
	}
}

// Valid reports whether jt is a known job type.
func (jt JobType) Valid() bool {
	switch jt {
	case JobTypeDeal, JobTypeRetrieval, JobTypeMetrics, JobTypeMetricsCleanup, JobTypeProvidersRefresh:
		return true
	default:
		return false
	}
}

// PerProvider reports whether the job type is scheduled once per storage
// provider. Non-per-provider types run as a single global schedule row with an
// empty sp_address.
func (jt JobType) PerProvider() bool {
	return jt == JobTypeDeal || jt == JobTypeRetrieval
}

// QueueName returns the durable queue the job type is enqueued onto.
func (jt JobType) QueueName() string {
	return string(jt)
}

// JobTypeForQueue maps a queue name back to its job type.
func JobTypeForQueue(queue string) (JobType, bool) {
	jt := JobType(queue)
	return jt, jt.Valid()
}

// ProbePayload is the payload carried by per-provider deal and retrieval jobs.
type ProbePayload struct {
	SPAddress       string `json:"sp_address"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

// GlobalPayload is the payload carried by global maintenance jobs.
type GlobalPayload struct {
	IntervalSeconds int64 `json:"interval_seconds"`
}

// EncodePayload marshals the payload for a schedule row.
func EncodePayload(jt JobType, spAddress string, interval time.Duration) (json.RawMessage, error) {
	seconds := int64(interval / time.Second)
	var v any
	if jt.PerProvider() {
		v = ProbePayload{SPAddress: spAddress, IntervalSeconds: seconds}
	} else {
		v = GlobalPayload{IntervalSeconds: seconds}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", jt, err)
	}
	return b, nil
}

// IntervalFromRate converts a per-hour target rate into a schedule interval.
// The result is clamped to at least one second.
func IntervalFromRate(perHour float64) time.Duration {
	if perHour <= 0 {
		return time.Hour
	}
	seconds := math.Round(3600 / perHour)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
