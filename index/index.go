// Package index implements the priority ordering structure for pending
// queue items: a max-heap keyed by (priority band descending, submission
// sequence ascending), with lazy single-step aging promotion to prevent
// starvation of lower bands.
//
// The index orders live item references; it is not safe for concurrent
// use on its own. The manager serializes access under its lock.
package index

import (
	"container/heap"
	"sort"
	"time"

	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/item"
)

// Index orders pending items for dispatch.
type Index struct {
	h              itemHeap
	agingThreshold time.Duration
	onPromote      func(*item.Item)
}

// OnPromote registers fn to be invoked once per item when aging
// promotes it. fn runs synchronously during Pop or Pending and must not
// call back into the index.
func (x *Index) OnPromote(fn func(*item.Item)) {
	x.onPromote = fn
}

// New creates an empty index. agingThreshold controls starvation
// protection: a pending item older than the threshold is promoted one
// band (once, capped at urgent) before the next extraction. Zero
// disables aging.
func New(agingThreshold time.Duration) *Index {
	idx := &Index{agingThreshold: agingThreshold}
	heap.Init(&idx.h)
	return idx
}

// Push inserts a pending item.
func (x *Index) Push(it *item.Item) {
	heap.Push(&x.h, it)
}

// Pop removes and returns the highest-priority item eligible to run at
// now (RunAt not in the future). It returns nil when there is no
// eligible work; the caller idles rather than blocking here.
//
// Aging is evaluated lazily on each call, not via a separate timer.
func (x *Index) Pop(now time.Time) *item.Item {
	x.age(now)

	// The heap top may be under retry backoff while a lower-priority
	// item is already eligible; skip ineligible entries and restore
	// them afterwards.
	var skipped []*item.Item
	var picked *item.Item

	for x.h.Len() > 0 {
		it := heap.Pop(&x.h).(*item.Item)
		if it.RunAt.After(now) {
			skipped = append(skipped, it)
			continue
		}
		picked = it
		break
	}

	for _, it := range skipped {
		heap.Push(&x.h, it)
	}
	return picked
}

// age promotes every pending item past the threshold by one band.
// Each item is promoted at most once over its lifetime.
func (x *Index) age(now time.Time) {
	if x.agingThreshold <= 0 {
		return
	}

	promoted := false
	for _, it := range x.h {
		if it.Aged {
			continue
		}
		if now.Sub(it.SubmittedAt) > x.agingThreshold {
			it.Aged = true
			promoted = true
			if x.onPromote != nil {
				x.onPromote(it)
			}
		}
	}
	if promoted {
		heap.Init(&x.h)
	}
}

// Remove extracts the item with the given id, for cancellation.
// Returns nil if the id is not indexed.
func (x *Index) Remove(itemID id.ItemID) *item.Item {
	for i, it := range x.h {
		if it.ID == itemID {
			removed := heap.Remove(&x.h, i).(*item.Item)
			return removed
		}
	}
	return nil
}

// Len returns the number of indexed items.
func (x *Index) Len() int { return x.h.Len() }

// Pending returns the indexed items in dequeue order without removing
// them. The slice is fresh; the items are the live references.
func (x *Index) Pending(now time.Time) []*item.Item {
	x.age(now)

	out := make([]*item.Item, len(x.h))
	copy(out, x.h)
	sort.Slice(out, func(i, k int) bool {
		return less(out[i], out[k])
	})
	return out
}

// itemHeap implements heap.Interface over live item references.
type itemHeap []*item.Item

func less(a, b *item.Item) bool {
	if ra, rb := a.EffectiveRank(), b.EffectiveRank(); ra != rb {
		return ra > rb
	}
	// FIFO within a band: older submissions first.
	return a.Seq < b.Seq
}

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, k int) bool { return less(h[i], h[k]) }
func (h itemHeap) Swap(i, k int)      { h[i], h[k] = h[k], h[i] }
func (h *itemHeap) Push(v any)        { *h = append(*h, v.(*item.Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
