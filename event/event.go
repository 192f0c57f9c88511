// Package event carries queue lifecycle notifications to interested
// listeners: the bot layer uses them to edit progress messages, and
// operators can tap them for audit trails. Delivery is asynchronous and
// lossy by design; the queue never blocks on a slow listener.
package event

import (
	"time"

	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/item"
)

// Kind names a lifecycle notification.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindStarted   Kind = "started"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
	KindRetried   Kind = "retried"
	KindCancelled Kind = "cancelled"
	KindAged      Kind = "aged"
)

// Event describes one item lifecycle transition. From is the state the
// item left and To the state it entered; From is empty for submitted
// events, and aged events carry pending for both since promotion does
// not change state.
type Event struct {
	Kind     Kind          `json:"kind"`
	ItemID   id.ItemID     `json:"itemId"`
	ChatID   int64         `json:"chatId,omitempty"`
	Priority item.Priority `json:"priority"`
	From     item.State    `json:"from,omitempty"`
	To       item.State    `json:"to"`
	Attempts int           `json:"attempts,omitempty"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// FromItem builds an event of the given kind from the item's current
// fields. The item has already transitioned when events are built, so
// the caller supplies the state it came from.
func FromItem(kind Kind, it *item.Item, from item.State, at time.Time) Event {
	ev := Event{
		Kind:     kind,
		ItemID:   it.ID,
		ChatID:   it.ChatID,
		Priority: it.Priority,
		From:     from,
		To:       it.State,
		Attempts: it.Attempts,
		At:       at,
	}
	if kind == KindFailed || kind == KindRetried {
		ev.Error = it.LastError
	}
	return ev
}
