package index_test

import (
	"testing"
	"time"

	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/index"
	"github.com/aajunior43/bottelegramvideo/item"
)

var seq uint64

func newItem(t *testing.T, p item.Priority, submitted time.Time) *item.Item {
	t.Helper()
	seq++
	return &item.Item{
		ID:          id.NewItemID(),
		Priority:    p,
		State:       item.StatePending,
		SubmittedAt: submitted,
		RunAt:       submitted,
		Seq:         seq,
	}
}

func TestPopPriorityOrder(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	low := newItem(t, item.PriorityLow, now)
	urgent := newItem(t, item.PriorityUrgent, now)
	normal := newItem(t, item.PriorityNormal, now)
	high := newItem(t, item.PriorityHigh, now)

	for _, it := range []*item.Item{low, urgent, normal, high} {
		idx.Push(it)
	}

	want := []*item.Item{urgent, high, normal, low}
	for i, w := range want {
		got := idx.Pop(now)
		if got == nil || got.ID != w.ID {
			t.Fatalf("pop %d: got %v, want %s", i, got, w.Priority)
		}
	}
	if idx.Pop(now) != nil {
		t.Error("pop on empty index should return nil")
	}
}

func TestPopFIFOWithinBand(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	first := newItem(t, item.PriorityNormal, now)
	second := newItem(t, item.PriorityNormal, now)
	third := newItem(t, item.PriorityNormal, now)

	idx.Push(second)
	idx.Push(third)
	idx.Push(first)

	for i, w := range []*item.Item{first, second, third} {
		if got := idx.Pop(now); got.Seq != w.Seq {
			t.Fatalf("pop %d: seq %d, want %d", i, got.Seq, w.Seq)
		}
	}
}

func TestAgingPromotesOneBand(t *testing.T) {
	threshold := 100 * time.Millisecond
	start := time.Now()
	idx := index.New(threshold)

	// D(low) sits past the aging threshold; a freshly submitted E(low)
	// must not overtake it once D is promoted to normal.
	d := newItem(t, item.PriorityLow, start)
	idx.Push(d)

	later := start.Add(threshold + time.Millisecond)
	e := newItem(t, item.PriorityLow, later)
	idx.Push(e)

	got := idx.Pop(later)
	if got.ID != d.ID {
		t.Fatalf("aged item not dequeued first")
	}
	if !got.Aged {
		t.Error("promoted item not marked aged")
	}
	if got.EffectiveRank() != item.PriorityNormal.Rank() {
		t.Errorf("effective rank = %d, want normal", got.EffectiveRank())
	}
}

func TestAgingIsSingleStep(t *testing.T) {
	threshold := 50 * time.Millisecond
	start := time.Now()
	idx := index.New(threshold)

	aged := newItem(t, item.PriorityLow, start)
	idx.Push(aged)

	// Even far past the threshold the item climbs exactly one band, so
	// a fresh high item still wins.
	farLater := start.Add(10 * threshold)
	high := newItem(t, item.PriorityHigh, farLater)
	idx.Push(high)

	if got := idx.Pop(farLater); got.ID != high.ID {
		t.Fatalf("aged low item overtook high priority")
	}
}

func TestPromoteHookFiresOnce(t *testing.T) {
	threshold := 50 * time.Millisecond
	start := time.Now()
	idx := index.New(threshold)

	var promoted []*item.Item
	idx.OnPromote(func(it *item.Item) { promoted = append(promoted, it) })

	old := newItem(t, item.PriorityLow, start)
	fresh := newItem(t, item.PriorityLow, start.Add(threshold))
	idx.Push(old)
	idx.Push(fresh)

	later := start.Add(threshold + time.Millisecond)
	if got := idx.Pending(later); len(got) != 2 {
		t.Fatalf("Pending len = %d, want 2", len(got))
	}
	if len(promoted) != 1 || promoted[0].ID != old.ID {
		t.Fatalf("hook calls = %d, want 1 for the aged item", len(promoted))
	}

	// Re-reading the index must not re-fire for an already aged item.
	idx.Pending(later.Add(time.Second))
	idx.Pop(later.Add(time.Second))
	if len(promoted) != 2 {
		// fresh crossed the threshold on the later reads; old must not
		// repeat.
		t.Fatalf("hook calls = %d, want 2", len(promoted))
	}
	if promoted[1].ID != fresh.ID {
		t.Error("second promotion was not the fresh item")
	}
}

func TestAgingNeverDemotes(t *testing.T) {
	threshold := 50 * time.Millisecond
	start := time.Now()
	idx := index.New(threshold)

	urgent := newItem(t, item.PriorityUrgent, start)
	idx.Push(urgent)

	got := idx.Pop(start.Add(2 * threshold))
	if got.EffectiveRank() != item.PriorityUrgent.Rank() {
		t.Errorf("urgent rank changed after aging: %d", got.EffectiveRank())
	}
}

func TestPopSkipsBackoffItems(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	delayed := newItem(t, item.PriorityUrgent, now)
	delayed.RunAt = now.Add(time.Minute)
	ready := newItem(t, item.PriorityLow, now)

	idx.Push(delayed)
	idx.Push(ready)

	if got := idx.Pop(now); got.ID != ready.ID {
		t.Fatalf("eligible item not dequeued past backoff item")
	}
	if idx.Len() != 1 {
		t.Fatalf("backoff item lost, len = %d", idx.Len())
	}

	// Once the backoff expires the delayed item comes out.
	if got := idx.Pop(now.Add(2 * time.Minute)); got.ID != delayed.ID {
		t.Fatal("delayed item not dequeued after backoff expiry")
	}
}

func TestPopAllInBackoff(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	it := newItem(t, item.PriorityNormal, now)
	it.RunAt = now.Add(time.Second)
	idx.Push(it)

	if got := idx.Pop(now); got != nil {
		t.Fatalf("expected nil pop, got %v", got.ID)
	}
	if idx.Len() != 1 {
		t.Errorf("item dropped by ineligible pop")
	}
}

func TestRemove(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	keep := newItem(t, item.PriorityNormal, now)
	drop := newItem(t, item.PriorityHigh, now)
	idx.Push(keep)
	idx.Push(drop)

	if got := idx.Remove(drop.ID); got == nil || got.ID != drop.ID {
		t.Fatal("Remove did not return the target item")
	}
	if idx.Remove(drop.ID) != nil {
		t.Error("second Remove should return nil")
	}
	if got := idx.Pop(now); got.ID != keep.ID {
		t.Error("remaining item not dequeued after Remove")
	}
}

func TestPendingOrder(t *testing.T) {
	now := time.Now()
	idx := index.New(0)

	low := newItem(t, item.PriorityLow, now)
	urgent := newItem(t, item.PriorityUrgent, now)
	normalA := newItem(t, item.PriorityNormal, now)
	normalB := newItem(t, item.PriorityNormal, now)

	for _, it := range []*item.Item{low, normalB, urgent, normalA} {
		idx.Push(it)
	}

	pending := idx.Pending(now)
	want := []*item.Item{urgent, normalA, normalB, low}
	if len(pending) != len(want) {
		t.Fatalf("Pending len = %d, want %d", len(pending), len(want))
	}
	for i, w := range want {
		if pending[i].ID != w.ID {
			t.Errorf("Pending[%d] = %s, want %s", i, pending[i].Priority, w.Priority)
		}
	}
	if idx.Len() != 4 {
		t.Error("Pending must not consume items")
	}
}
