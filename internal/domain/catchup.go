package domain

import "time"

// immediateLimit is how many of a row's overdue firings are sent without a
// spread delay. Kept at 1 so a recovering scheduler emits a single probe right
// away and staggers the rest.
const immediateLimit = 1

// CatchupParams describes one due schedule row at planning time.
type CatchupParams struct {
	Now       time.Time
	NextRunAt time.Time
	Interval  time.Duration
	// Max caps the number of firings emitted for this row in one tick.
	Max int
	// Spread is the horizon over which delayed catch-up firings are staggered.
	Spread time.Duration
	// Jitter is an optional random offset added to every start time by the
	// caller; the planner itself stays deterministic.
}

// CatchupPlan is the set of start offsets (relative to Now) for a due row.
// Offset zero means "send immediately".
type CatchupPlan struct {
	// Offsets has one entry per firing, ascending. Empty when the row is not
	// actually due.
	Offsets []time.Duration
}

// Total returns the number of firings planned.
func (p CatchupPlan) Total() int {
	return len(p.Offsets)
}

// PlanCatchup computes how many firings a due row owes and when each should
// start. The number of overdue firings is floor(overdue/interval)+1, clamped
// to Max. The first immediateLimit firings start now; the remainder are
// spread across Spread at offsets ceil((i+1)*spread/(delayed+1)) so a long
// outage does not produce a burst.
func PlanCatchup(p CatchupParams) CatchupPlan {
	if p.Interval <= 0 || p.Now.Before(p.NextRunAt) {
		return CatchupPlan{}
	}

	overdue := p.Now.Sub(p.NextRunAt)
	runsDue := int(overdue/p.Interval) + 1
	total := runsDue
	if p.Max > 0 && total > p.Max {
		total = p.Max
	}

	offsets := make([]time.Duration, 0, total)
	immediate := immediateLimit
	if immediate > total {
		immediate = total
	}
	for i := 0; i < immediate; i++ {
		offsets = append(offsets, 0)
	}

	delayed := total - immediate
	if delayed > 0 && p.Spread <= 0 {
		for i := 0; i < delayed; i++ {
			offsets = append(offsets, 0)
		}
		return CatchupPlan{Offsets: offsets}
	}
	for i := 0; i < delayed; i++ {
		offsets = append(offsets, spreadOffset(i, delayed, p.Spread))
	}
	return CatchupPlan{Offsets: offsets}
}

// spreadOffset returns the i-th delayed offset (0-based) of delayed total,
// rounded up to a whole second.
func spreadOffset(i, delayed int, spread time.Duration) time.Duration {
	spreadSec := int64(spread / time.Second)
	num := int64(i+1) * spreadSec
	den := int64(delayed + 1)
	sec := num / den
	if num%den != 0 {
		sec++
	}
	return time.Duration(sec) * time.Second
}

// NextRunAfter advances a row's next_run_at by the number of firings that
// actually made it onto the queue. Advancing from the original next_run_at
// (rather than from now) keeps the schedule phase stable over time.
func NextRunAfter(nextRunAt time.Time, interval time.Duration, successes int) time.Time {
	if successes <= 0 {
		return nextRunAt
	}
	return nextRunAt.Add(time.Duration(successes) * interval)
}
