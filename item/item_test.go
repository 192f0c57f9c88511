package item_test

import (
	"errors"
	"testing"
	"time"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/item"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to item.State
		want     bool
	}{
		{item.StatePending, item.StateRunning, true},
		{item.StatePending, item.StateCancelled, true},
		{item.StatePending, item.StateSucceeded, false},
		{item.StateRunning, item.StateSucceeded, true},
		{item.StateRunning, item.StateFailed, true},
		{item.StateRunning, item.StatePending, true},
		{item.StateRunning, item.StateCancelled, true},
		{item.StateSucceeded, item.StatePending, false},
		{item.StateFailed, item.StateRunning, false},
		{item.StateCancelled, item.StateCancelled, false},
	}

	for _, tt := range tests {
		if got := item.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionFromTerminalFails(t *testing.T) {
	it := &item.Item{ID: id.NewItemID(), State: item.StateSucceeded}
	err := it.Transition(item.StateRunning, time.Now())
	if !errors.Is(err, botqueue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if it.State != item.StateSucceeded {
		t.Errorf("state changed on rejected transition: %s", it.State)
	}
}

func TestTransitionSetsCompletedAt(t *testing.T) {
	now := time.Now().UTC()
	it := &item.Item{ID: id.NewItemID(), State: item.StateRunning}
	if err := it.Transition(item.StateSucceeded, now); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if it.CompletedAt == nil || !it.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", it.CompletedAt, now)
	}
}

func TestParsePriority(t *testing.T) {
	for _, s := range []string{"low", "normal", "high", "urgent"} {
		if _, err := item.ParsePriority(s); err != nil {
			t.Errorf("ParsePriority(%q) error: %v", s, err)
		}
	}

	_, err := item.ParsePriority("critical")
	if !errors.Is(err, botqueue.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestPromoteCapsAtUrgent(t *testing.T) {
	if got := item.PriorityLow.Promote(); got != item.PriorityNormal {
		t.Errorf("low promoted to %s, want normal", got)
	}
	if got := item.PriorityUrgent.Promote(); got != item.PriorityUrgent {
		t.Errorf("urgent promoted to %s, want urgent", got)
	}
}

func TestEffectiveRankSingleStep(t *testing.T) {
	it := &item.Item{Priority: item.PriorityLow}
	if it.EffectiveRank() != item.PriorityLow.Rank() {
		t.Errorf("unaged rank = %d, want %d", it.EffectiveRank(), item.PriorityLow.Rank())
	}

	it.Aged = true
	if it.EffectiveRank() != item.PriorityNormal.Rank() {
		t.Errorf("aged rank = %d, want %d", it.EffectiveRank(), item.PriorityNormal.Rank())
	}

	urgent := &item.Item{Priority: item.PriorityUrgent, Aged: true}
	if urgent.EffectiveRank() != item.PriorityUrgent.Rank() {
		t.Errorf("aged urgent rank = %d, want cap at %d", urgent.EffectiveRank(), item.PriorityUrgent.Rank())
	}
}

func TestCloneIsDeep(t *testing.T) {
	started := time.Now().UTC()
	it := &item.Item{
		ID:        id.NewItemID(),
		Payload:   []byte(`{"url":"https://example.com/v"}`),
		State:     item.StateRunning,
		StartedAt: &started,
	}

	cp := it.Clone()
	cp.Payload[0] = 'X'
	*cp.StartedAt = started.Add(time.Hour)

	if it.Payload[0] == 'X' {
		t.Error("clone shares payload backing array")
	}
	if !it.StartedAt.Equal(started) {
		t.Error("clone shares StartedAt pointer")
	}
}

func TestProcessingTime(t *testing.T) {
	start := time.Now().UTC()
	end := start.Add(3 * time.Second)
	it := &item.Item{StartedAt: &start, CompletedAt: &end}
	if got := it.ProcessingTime(); got != 3*time.Second {
		t.Errorf("ProcessingTime = %v, want 3s", got)
	}

	if (&item.Item{}).ProcessingTime() != 0 {
		t.Error("expected zero processing time for unstarted item")
	}
}
