// Package item defines the queue item data model: identity, priority
// band, lifecycle state machine, and retry accounting.
package item

import (
	"fmt"
	"time"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/id"
)

// State represents the lifecycle state of a queue item.
type State string

const (
	// StatePending means the item is waiting to be picked up by a worker.
	StatePending State = "pending"
	// StateRunning means a worker is currently processing the item.
	StateRunning State = "running"
	// StateSucceeded means processing finished successfully.
	StateSucceeded State = "succeeded"
	// StateFailed means processing failed and will not be retried.
	StateFailed State = "failed"
	// StateCancelled means the item was explicitly cancelled.
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether the state machine permits from → to.
//
//	pending  → running (dispatch), cancelled
//	running  → succeeded, failed, pending (retry), cancelled
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateCancelled
	case StateRunning:
		return to == StateSucceeded || to == StateFailed ||
			to == StatePending || to == StateCancelled
	default:
		return false
	}
}

// Item is one unit of work. Identity fields (ID, Payload, Priority,
// ChatID, UserName, SubmittedAt, Seq) are immutable after submission;
// lifecycle fields are mutated only by the manager under its lock.
type Item struct {
	ID       id.ItemID `json:"id"`
	Payload  []byte    `json:"payload"`
	Priority Priority  `json:"priority"`

	// ChatID and UserName scope the item to the chat that requested it.
	// The queue never interprets them beyond per-chat queries and quota.
	ChatID   int64  `json:"chat_id,omitempty"`
	UserName string `json:"user_name,omitempty"`

	State     State  `json:"state"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// RunAt is the earliest time the item may be dequeued. Retry
	// backoff pushes it into the future.
	RunAt time.Time `json:"run_at"`

	// Seq is the monotonically increasing submission counter used to
	// break priority ties FIFO.
	Seq uint64 `json:"seq"`

	// Aged records that the item was promoted one band by aging.
	// Promotion happens at most once.
	Aged bool `json:"aged,omitempty"`

	// CancelRequested marks a running item whose cancellation was
	// requested; it becomes cancelled once its worker returns.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// Transition moves the item to the given state, enforcing the state
// machine. Attempts by callers to leave a terminal state fail with
// botqueue.ErrInvalidTransition.
func (it *Item) Transition(to State, at time.Time) error {
	if !CanTransition(it.State, to) {
		return fmt.Errorf("%w: %s → %s (item %s)",
			botqueue.ErrInvalidTransition, it.State, to, it.ID)
	}

	it.State = to
	if to.Terminal() {
		t := at
		it.CompletedAt = &t
	}
	return nil
}

// EffectiveRank is the scheduling rank after aging promotion.
func (it *Item) EffectiveRank() int {
	r := it.Priority.Rank()
	if it.Aged && r < PriorityUrgent.Rank() {
		r++
	}
	return r
}

// ProcessingTime returns the duration from dispatch to terminal
// transition, or zero if the item never ran or has not finished.
func (it *Item) ProcessingTime() time.Duration {
	if it.StartedAt == nil || it.CompletedAt == nil {
		return 0
	}
	return it.CompletedAt.Sub(*it.StartedAt)
}

// Clone returns a deep copy safe to hand to readers outside the
// manager's lock.
func (it *Item) Clone() *Item {
	cp := *it
	if it.Payload != nil {
		cp.Payload = make([]byte, len(it.Payload))
		copy(cp.Payload, it.Payload)
	}
	if it.StartedAt != nil {
		t := *it.StartedAt
		cp.StartedAt = &t
	}
	if it.CompletedAt != nil {
		t := *it.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
