package statsd

import (
	"sync"
	"time"
)

// RecordedMetric is one metric captured by a Recorder.
type RecordedMetric struct {
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink for tests.
type Recorder struct {
	mu      sync.Mutex
	counts  []RecordedMetric
	gauges  []RecordedMetric
	timings []RecordedMetric
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Count implements Sink.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, RecordedMetric{Name: name, Value: float64(value), Tags: cloneTags(tags)})
}

// Gauge implements Sink.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges = append(r.gauges, RecordedMetric{Name: name, Value: value, Tags: cloneTags(tags)})
}

// Timing implements Sink.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, RecordedMetric{Name: name, Value: float64(value.Milliseconds()), Tags: cloneTags(tags)})
}

// Counts returns the captured count metrics.
func (r *Recorder) Counts() []RecordedMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedMetric(nil), r.counts...)
}

// Gauges returns the captured gauge metrics.
func (r *Recorder) Gauges() []RecordedMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedMetric(nil), r.gauges...)
}

// Timings returns the captured timing metrics.
func (r *Recorder) Timings() []RecordedMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedMetric(nil), r.timings...)
}

// CountTotal sums captured counts for a name, ignoring tags.
func (r *Recorder) CountTotal(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, m := range r.counts {
		if m.Name == name {
			total += int64(m.Value)
		}
	}
	return total
}

// LastGauge returns the most recent gauge with the given name whose tags are
// a superset of want.
func (r *Recorder) LastGauge(name string, want map[string]string) (RecordedMetric, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.gauges) - 1; i >= 0; i-- {
		m := r.gauges[i]
		if m.Name != name {
			continue
		}
		if tagsMatch(m.Tags, want) {
			return m, true
		}
	}
	return RecordedMetric{}, false
}

func tagsMatch(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
