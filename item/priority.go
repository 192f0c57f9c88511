package item

import (
	"fmt"

	botqueue "github.com/aajunior43/bottelegramvideo"
)

// Priority is the priority band of a queue item. It is immutable after
// submission; re-prioritization is a removal plus re-insertion.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRanks = map[Priority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Valid reports whether p is one of the four recognized bands.
func (p Priority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Rank returns the numeric ordering of the band; higher runs first.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// ParsePriority converts a string to a Priority, failing with
// botqueue.ErrInvalidPriority for anything but the four bands.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", botqueue.ErrInvalidPriority, s)
	}
	return p, nil
}

// Promote returns the band one step above p, capped at urgent.
func (p Priority) Promote() Priority {
	switch p {
	case PriorityLow:
		return PriorityNormal
	case PriorityNormal:
		return PriorityHigh
	case PriorityHigh, PriorityUrgent:
		return PriorityUrgent
	default:
		return p
	}
}

// Bands lists the four priority bands from lowest to highest.
func Bands() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}
