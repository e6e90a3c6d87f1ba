// Package metrics names and emits the service's StatsD metrics so metric
// shapes stay consistent across the scheduler and worker runtimes.
package metrics

import (
	"time"

	obserrors "github.com/checkernet/probed/internal/observability/errors"
	"github.com/checkernet/probed/internal/observability/statsd"
)

// Result labels for job completion metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultAborted marks a handler cut short by its per-job-type timeout.
	ResultAborted = "aborted"
)

// JobStarted increments the started counter for a job type.
func JobStarted(sink statsd.Sink, jobType string) {
	if sink == nil {
		return
	}
	sink.Count("job.started", 1, map[string]string{"job_type": jobType})
}

// JobCompletion captures one finished handler invocation.
type JobCompletion struct {
	JobType  string
	Result   string
	Duration time.Duration
	Err      error
}

// JobCompleted emits the completion counter and duration timing for a job.
func JobCompleted(sink statsd.Sink, in JobCompletion) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type": in.JobType,
		"result":   in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.completed", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// JobDeferred counts a dequeued job that was re-sent instead of run, with the
// reason ("maintenance" or "mutex").
func JobDeferred(sink statsd.Sink, jobType, reason string) {
	if sink == nil {
		return
	}
	sink.Count("job.deferred", 1, map[string]string{
		"job_type": jobType,
		"reason":   reason,
	})
}

// EnqueueAttempt counts one send attempt from the enqueue loop.
func EnqueueAttempt(sink statsd.Sink, jobType, outcome string) {
	if sink == nil {
		return
	}
	sink.Count("enqueue.attempts", 1, map[string]string{
		"job_type": jobType,
		"outcome":  outcome,
	})
}

// TickOutcome captures one scheduler tick for metric emission.
type TickOutcome struct {
	DueRows  int
	Sent     int
	Failed   int
	Duration time.Duration
	Err      error
}

// TickCompleted emits tick-level counters and the tick duration timing.
func TickCompleted(sink statsd.Sink, in TickOutcome) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	tags := map[string]string{}
	if in.Err != nil {
		result = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	tags["result"] = result

	sink.Count("tick.completed", 1, tags)
	sink.Count("tick.jobs_sent", int64(in.Sent), nil)
	if in.Failed > 0 {
		sink.Count("tick.jobs_failed", int64(in.Failed), nil)
	}
	sink.Gauge("tick.due_rows", float64(in.DueRows), nil)
	if in.Duration > 0 {
		sink.Timing("tick.duration", in.Duration, CloneTags(tags))
	}
}

// QueueDepth sets the gauge for jobs in a given queue and state.
func QueueDepth(sink statsd.Sink, queue, state string, count int64) {
	if sink == nil {
		return
	}
	sink.Gauge("queue.jobs", float64(count), map[string]string{
		"queue": queue,
		"state": state,
	})
}

// QueueOldestAge sets an oldest-age gauge (name is "oldest_queued_age_seconds"
// or "oldest_in_flight_age_seconds") for a queue.
func QueueOldestAge(sink statsd.Sink, name, queue string, seconds float64) {
	if sink == nil {
		return
	}
	sink.Gauge("queue."+name, seconds, map[string]string{"queue": queue})
}

// PausedSchedules sets the paused-row gauge for a job type.
func PausedSchedules(sink statsd.Sink, jobType string, count int64) {
	if sink == nil {
		return
	}
	sink.Gauge("schedule.paused", float64(count), map[string]string{
		"job_type": jobType,
	})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
