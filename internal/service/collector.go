package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/observability/metrics"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
)

// Collector publishes queue occupancy and schedule health gauges. Every known
// (queue, state) pair is emitted each pass, including zeros, so a drained
// queue pulls its gauge back down instead of freezing at the last value.
type Collector struct {
	queues    core.QueueIntrospector
	schedules core.ScheduleStore
	sink      statsd.Sink
	logger    *slog.Logger
	tp        data.TimeProvider
}

// NewCollector wires a Collector.
func NewCollector(queues core.QueueIntrospector, schedules core.ScheduleStore, sink statsd.Sink, logger *slog.Logger, tp data.TimeProvider) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &Collector{queues: queues, schedules: schedules, sink: sink, logger: logger, tp: tp}
}

// Collect reads occupancy back from the durable queue and schedule table and
// emits the gauges.
func (c *Collector) Collect(ctx context.Context) error {
	states := []string{queue.StateCreated, queue.StateActive}

	counts, err := c.queues.CountStates(ctx, states)
	if err != nil {
		return fmt.Errorf("collect queue counts: %w", err)
	}
	if len(counts) == 0 {
		// A scheduler that enqueues on every tick should keep at least some
		// rows in flight; an entirely empty table points at a misconfigured
		// queue or a scheduler that stopped firing.
		c.logger.WarnContext(ctx, "queue job table has no queued or active rows")
	}
	byKey := make(map[string]int64, len(counts))
	for _, cnt := range counts {
		byKey[cnt.Queue+"/"+cnt.State] = cnt.Count
	}
	for _, jt := range domain.AllJobTypes() {
		for _, state := range states {
			metrics.QueueDepth(c.sink, jt.QueueName(), state, byKey[jt.QueueName()+"/"+state])
		}
	}

	now := c.tp.Now().UTC()
	if err := c.collectAges(ctx, queue.StateCreated, "oldest_queued_age_seconds", now); err != nil {
		return err
	}
	if err := c.collectAges(ctx, queue.StateActive, "oldest_in_flight_age_seconds", now); err != nil {
		return err
	}

	paused, err := c.schedules.CountPaused(ctx)
	if err != nil {
		return fmt.Errorf("collect paused schedules: %w", err)
	}
	pausedByType := make(map[domain.JobType]int64, len(paused))
	for _, p := range paused {
		pausedByType[p.JobType] = p.Count
	}
	for _, jt := range domain.AllJobTypes() {
		metrics.PausedSchedules(c.sink, string(jt), pausedByType[jt])
	}
	return nil
}

func (c *Collector) collectAges(ctx context.Context, state, gauge string, now time.Time) error {
	ages, err := c.queues.MinAgeByState(ctx, state, now)
	if err != nil {
		return fmt.Errorf("collect %s: %w", gauge, err)
	}
	byQueue := make(map[string]float64, len(ages))
	for _, age := range ages {
		byQueue[age.Queue] = age.AgeSeconds
	}
	for _, jt := range domain.AllJobTypes() {
		metrics.QueueOldestAge(c.sink, gauge, jt.QueueName(), byQueue[jt.QueueName()])
	}
	return nil
}
