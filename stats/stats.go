// Package stats aggregates queue throughput and latency figures. The
// aggregator observes item state transitions and processing durations
// and answers point-in-time snapshots; it never inspects queue
// internals directly.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/aajunior43/bottelegramvideo/item"
)

// ringSize bounds the recent-duration sample window used for the p95
// estimate. Old samples are overwritten in submission order.
const ringSize = 256

// Counters holds the lifecycle tallies for one priority band, or for
// the queue as a whole. Pending and Running are gauges; the terminal
// counters and Submitted only ever grow.
type Counters struct {
	Submitted uint64 `json:"submitted" msgpack:"submitted"`
	Pending   uint64 `json:"pending" msgpack:"pending"`
	Running   uint64 `json:"running" msgpack:"running"`
	Succeeded uint64 `json:"succeeded" msgpack:"succeeded"`
	Failed    uint64 `json:"failed" msgpack:"failed"`
	Cancelled uint64 `json:"cancelled" msgpack:"cancelled"`
	Retries   uint64 `json:"retries" msgpack:"retries"`
}

// Snapshot is a point-in-time view of the aggregate figures.
type Snapshot struct {
	Total   Counters                   `json:"total"`
	ByBand  map[item.Priority]Counters `json:"byBand"`
	AvgTime time.Duration              `json:"avgProcessingTime"`
	P95Time time.Duration              `json:"p95ProcessingTime"`
	TakenAt time.Time                  `json:"takenAt"`
}

// State is the persistable portion of the aggregator, carried inside
// queue snapshots so counters survive restarts. Gauges are rebuilt from
// the recovered items, not from State.
type State struct {
	Total    Counters                   `json:"total" msgpack:"total"`
	ByBand   map[item.Priority]Counters `json:"byBand" msgpack:"byBand"`
	DurTotal time.Duration              `json:"durTotal" msgpack:"durTotal"`
	DurCount uint64                     `json:"durCount" msgpack:"durCount"`
}

// Aggregator accumulates queue statistics. Safe for concurrent use.
type Aggregator struct {
	mu     sync.Mutex
	total  Counters
	byBand map[item.Priority]Counters

	durTotal time.Duration
	durCount uint64

	ring  [ringSize]time.Duration
	ringN int
}

// New creates an empty aggregator with all bands zeroed.
func New() *Aggregator {
	a := &Aggregator{byBand: make(map[item.Priority]Counters, 4)}
	for _, p := range item.Bands() {
		a.byBand[p] = Counters{}
	}
	return a
}

// FromState restores an aggregator from persisted state, used on
// recovery. Pending/Running gauges in the state are discarded; the
// caller re-observes the recovered items.
func FromState(st State) *Aggregator {
	a := New()
	a.total = st.Total
	a.total.Pending, a.total.Running = 0, 0
	for p, c := range st.ByBand {
		c.Pending, c.Running = 0, 0
		a.byBand[p] = c
	}
	a.durTotal = st.DurTotal
	a.durCount = st.DurCount
	return a
}

// ObserveSubmit records a new pending item.
func (a *Aggregator) ObserveSubmit(p item.Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Submitted++
	a.total.Pending++
	c := a.byBand[p]
	c.Submitted++
	c.Pending++
	a.byBand[p] = c
}

// ObserveRecovered records an item restored to pending from a snapshot
// without counting it as a fresh submission.
func (a *Aggregator) ObserveRecovered(p item.Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Pending++
	c := a.byBand[p]
	c.Pending++
	a.byBand[p] = c
}

// ObserveStart records a pending item moving to running.
func (a *Aggregator) ObserveStart(p item.Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Pending--
	a.total.Running++
	c := a.byBand[p]
	c.Pending--
	c.Running++
	a.byBand[p] = c
}

// ObserveRetry records a running item returning to pending for another
// attempt.
func (a *Aggregator) ObserveRetry(p item.Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Running--
	a.total.Pending++
	a.total.Retries++
	c := a.byBand[p]
	c.Running--
	c.Pending++
	c.Retries++
	a.byBand[p] = c
}

// ObserveDone records a running item reaching a terminal state. The
// processing duration feeds the latency figures for succeeded and
// failed items; cancellations carry no duration.
func (a *Aggregator) ObserveDone(p item.Priority, final item.State, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total.Running--
	c := a.byBand[p]
	c.Running--

	switch final {
	case item.StateSucceeded:
		a.total.Succeeded++
		c.Succeeded++
	case item.StateFailed:
		a.total.Failed++
		c.Failed++
	case item.StateCancelled:
		a.total.Cancelled++
		c.Cancelled++
	}
	a.byBand[p] = c

	if final != item.StateCancelled && d > 0 {
		a.durTotal += d
		a.ring[a.ringN%ringSize] = d
		a.ringN++
		a.durCount++
	}
}

// ObserveCancelPending records a pending item cancelled before it ever
// ran.
func (a *Aggregator) ObserveCancelPending(p item.Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Pending--
	a.total.Cancelled++
	c := a.byBand[p]
	c.Pending--
	c.Cancelled++
	a.byBand[p] = c
}

// ObservePurged removes terminal items dropped by retention cleanup
// from the cumulative tallies so the submitted invariant keeps holding
// against the live item set.
func (a *Aggregator) ObservePurged(p item.Priority, final item.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Submitted--
	c := a.byBand[p]
	c.Submitted--
	switch final {
	case item.StateSucceeded:
		a.total.Succeeded--
		c.Succeeded--
	case item.StateFailed:
		a.total.Failed--
		c.Failed--
	case item.StateCancelled:
		a.total.Cancelled--
		c.Cancelled--
	}
	a.byBand[p] = c
}

// Snapshot returns the current figures. The p95 is computed over the
// most recent sample window, the average over the full history.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Total:   a.total,
		ByBand:  make(map[item.Priority]Counters, len(a.byBand)),
		TakenAt: time.Now().UTC(),
	}
	for p, c := range a.byBand {
		s.ByBand[p] = c
	}

	if a.durCount > 0 {
		s.AvgTime = a.durTotal / time.Duration(a.durCount)
	}
	s.P95Time = a.p95Locked()
	return s
}

func (a *Aggregator) p95Locked() time.Duration {
	n := a.ringN
	if n > ringSize {
		n = ringSize
	}
	if n == 0 {
		return 0
	}
	samples := make([]time.Duration, n)
	copy(samples, a.ring[:n])
	sort.Slice(samples, func(i, k int) bool { return samples[i] < samples[k] })

	// Nearest-rank percentile over the window.
	rank := (95*n + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return samples[rank-1]
}

// Export returns the persistable state for inclusion in a queue
// snapshot.
func (a *Aggregator) Export() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := State{
		Total:    a.total,
		ByBand:   make(map[item.Priority]Counters, len(a.byBand)),
		DurTotal: a.durTotal,
		DurCount: a.durCount,
	}
	for p, c := range a.byBand {
		st.ByBand[p] = c
	}
	return st
}
