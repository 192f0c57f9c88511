package stats_test

import (
	"testing"
	"time"

	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/stats"
)

func TestLifecycleCounters(t *testing.T) {
	a := stats.New()

	a.ObserveSubmit(item.PriorityHigh)
	a.ObserveSubmit(item.PriorityHigh)
	a.ObserveSubmit(item.PriorityLow)

	a.ObserveStart(item.PriorityHigh)
	a.ObserveDone(item.PriorityHigh, item.StateSucceeded, 2*time.Second)

	a.ObserveStart(item.PriorityHigh)
	a.ObserveDone(item.PriorityHigh, item.StateFailed, time.Second)

	a.ObserveCancelPending(item.PriorityLow)

	s := a.Snapshot()
	if s.Total.Submitted != 3 {
		t.Errorf("Submitted = %d, want 3", s.Total.Submitted)
	}
	if s.Total.Succeeded != 1 || s.Total.Failed != 1 || s.Total.Cancelled != 1 {
		t.Errorf("terminals = %d/%d/%d, want 1/1/1",
			s.Total.Succeeded, s.Total.Failed, s.Total.Cancelled)
	}
	if s.Total.Pending != 0 || s.Total.Running != 0 {
		t.Errorf("gauges = %d pending %d running, want 0/0", s.Total.Pending, s.Total.Running)
	}

	high := s.ByBand[item.PriorityHigh]
	if high.Submitted != 2 || high.Succeeded != 1 || high.Failed != 1 {
		t.Errorf("high band counters wrong: %+v", high)
	}
}

func TestSubmittedInvariant(t *testing.T) {
	a := stats.New()

	for i := 0; i < 5; i++ {
		a.ObserveSubmit(item.PriorityNormal)
	}
	a.ObserveStart(item.PriorityNormal)
	a.ObserveStart(item.PriorityNormal)
	a.ObserveDone(item.PriorityNormal, item.StateSucceeded, time.Second)

	s := a.Snapshot()
	sum := s.Total.Pending + s.Total.Running +
		s.Total.Succeeded + s.Total.Failed + s.Total.Cancelled
	if sum != s.Total.Submitted {
		t.Errorf("state sum %d != submitted %d", sum, s.Total.Submitted)
	}
}

func TestRetryCountsOnce(t *testing.T) {
	a := stats.New()
	a.ObserveSubmit(item.PriorityNormal)

	// Two transient failures then success: one submission, two retries,
	// one succeeded.
	a.ObserveStart(item.PriorityNormal)
	a.ObserveRetry(item.PriorityNormal)
	a.ObserveStart(item.PriorityNormal)
	a.ObserveRetry(item.PriorityNormal)
	a.ObserveStart(item.PriorityNormal)
	a.ObserveDone(item.PriorityNormal, item.StateSucceeded, time.Second)

	s := a.Snapshot()
	if s.Total.Submitted != 1 {
		t.Errorf("Submitted = %d, want 1", s.Total.Submitted)
	}
	if s.Total.Retries != 2 {
		t.Errorf("Retries = %d, want 2", s.Total.Retries)
	}
	if s.Total.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", s.Total.Succeeded)
	}
}

func TestAvgAndP95(t *testing.T) {
	a := stats.New()

	for i := 1; i <= 100; i++ {
		a.ObserveSubmit(item.PriorityNormal)
		a.ObserveStart(item.PriorityNormal)
		a.ObserveDone(item.PriorityNormal, item.StateSucceeded,
			time.Duration(i)*time.Millisecond)
	}

	s := a.Snapshot()
	wantAvg := 50500 * time.Microsecond // mean of 1..100 ms
	if s.AvgTime != wantAvg {
		t.Errorf("AvgTime = %v, want %v", s.AvgTime, wantAvg)
	}
	if s.P95Time != 95*time.Millisecond {
		t.Errorf("P95Time = %v, want 95ms", s.P95Time)
	}
}

func TestCancelledCarriesNoDuration(t *testing.T) {
	a := stats.New()
	a.ObserveSubmit(item.PriorityNormal)
	a.ObserveStart(item.PriorityNormal)
	a.ObserveDone(item.PriorityNormal, item.StateCancelled, 5*time.Second)

	s := a.Snapshot()
	if s.AvgTime != 0 || s.P95Time != 0 {
		t.Errorf("cancelled item fed latency figures: avg=%v p95=%v", s.AvgTime, s.P95Time)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	a := stats.New()
	a.ObserveSubmit(item.PriorityUrgent)
	a.ObserveStart(item.PriorityUrgent)
	a.ObserveDone(item.PriorityUrgent, item.StateSucceeded, 3*time.Second)
	a.ObserveSubmit(item.PriorityLow) // left pending

	restored := stats.FromState(a.Export())
	s := restored.Snapshot()

	if s.Total.Submitted != 2 || s.Total.Succeeded != 1 {
		t.Errorf("restored counters wrong: %+v", s.Total)
	}
	// Gauges do not survive restore; recovery re-observes live items.
	if s.Total.Pending != 0 || s.Total.Running != 0 {
		t.Errorf("restored gauges = %d/%d, want 0/0", s.Total.Pending, s.Total.Running)
	}
	if s.AvgTime != 3*time.Second {
		t.Errorf("restored AvgTime = %v, want 3s", s.AvgTime)
	}

	restored.ObserveRecovered(item.PriorityLow)
	if got := restored.Snapshot().Total.Pending; got != 1 {
		t.Errorf("pending after recovery = %d, want 1", got)
	}
}

func TestPurgedKeepsInvariant(t *testing.T) {
	a := stats.New()
	a.ObserveSubmit(item.PriorityNormal)
	a.ObserveStart(item.PriorityNormal)
	a.ObserveDone(item.PriorityNormal, item.StateSucceeded, time.Second)

	a.ObservePurged(item.PriorityNormal, item.StateSucceeded)

	s := a.Snapshot()
	if s.Total.Submitted != 0 || s.Total.Succeeded != 0 {
		t.Errorf("purge did not rewind counters: %+v", s.Total)
	}
}
