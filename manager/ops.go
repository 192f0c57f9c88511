package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/event"
	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/item"
)

// SubmitOption attaches optional attributes to a submitted item.
type SubmitOption func(*item.Item)

// WithChat associates the item with the requesting chat and user, used
// for per-chat queries, quotas, and cleanup.
func WithChat(chatID int64, userName string) SubmitOption {
	return func(it *item.Item) {
		it.ChatID = chatID
		it.UserName = userName
	}
}

// Submit enqueues a new pending item and returns a copy of it.
func (m *Manager) Submit(_ context.Context, priority item.Priority, payload []byte, opts ...SubmitOption) (*item.Item, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", botqueue.ErrInvalidPriority, priority)
	}

	now := time.Now().UTC()
	it := &item.Item{
		ID:          id.NewItemID(),
		Payload:     payload,
		Priority:    priority,
		State:       item.StatePending,
		SubmittedAt: now,
		RunAt:       now,
	}
	for _, opt := range opts {
		opt(it)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, botqueue.ErrManagerClosed
	}
	if m.cfg.MaxQueueSize > 0 && m.idx.Len() >= m.cfg.MaxQueueSize {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d pending", botqueue.ErrQueueFull, m.cfg.MaxQueueSize)
	}
	if m.guard != nil && it.ChatID != 0 && !m.guard.Acquire(it.ChatID) {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: chat %d", botqueue.ErrQuotaExceeded, it.ChatID)
	}

	m.seq++
	it.Seq = m.seq
	m.items[it.ID.String()] = it
	m.idx.Push(it)
	m.agg.ObserveSubmit(it.Priority)
	m.markDirtyLocked()
	clone := it.Clone()
	// Published under the lock so listeners always see submitted before
	// started. Publish never blocks.
	m.bus.Publish(event.FromItem(event.KindSubmitted, clone, "", now))
	m.mu.Unlock()

	m.wakeWorkers()

	m.logger.Debug("item submitted",
		slog.String("item_id", it.ID.String()),
		slog.String("priority", string(priority)),
		slog.Int64("chat_id", it.ChatID),
	)
	return clone, nil
}

// Cancel requests cancellation of an item. Pending items are cancelled
// immediately. Running items are cancelled cooperatively: the
// processing context is cancelled and the item is marked cancelled when
// the worker returns. Cancelling a terminal item is a no-op that
// returns its current state.
func (m *Manager) Cancel(_ context.Context, itemID id.ItemID) (item.State, error) {
	now := time.Now().UTC()

	m.mu.Lock()
	it, ok := m.items[itemID.String()]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", botqueue.ErrItemNotFound, itemID)
	}

	switch {
	case it.State.Terminal():
		state := it.State
		m.mu.Unlock()
		return state, nil

	case it.State == item.StatePending:
		m.idx.Remove(it.ID)
		if err := it.Transition(item.StateCancelled, now); err != nil {
			m.mu.Unlock()
			return it.State, err
		}
		m.agg.ObserveCancelPending(it.Priority)
		m.releaseQuotaLocked(it)
		m.markDirtyLocked()
		m.bus.Publish(event.FromItem(event.KindCancelled, it.Clone(), item.StatePending, now))
		m.mu.Unlock()
		return item.StateCancelled, nil

	default: // running
		it.CancelRequested = true
		cancel := m.cancels[it.ID.String()]
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		return item.StateRunning, nil
	}
}

// GetItem returns a copy of the item with the given id.
func (m *Manager) GetItem(_ context.Context, itemID id.ItemID) (*item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", botqueue.ErrItemNotFound, itemID)
	}
	return it.Clone(), nil
}

// ListPending returns copies of pending items in dequeue order. With no
// arguments it returns every pending item; otherwise only items
// submitted at one of the given priority bands.
func (m *Manager) ListPending(_ context.Context, priorities ...item.Priority) []*item.Item {
	var want map[item.Priority]bool
	if len(priorities) > 0 {
		want = make(map[item.Priority]bool, len(priorities))
		for _, p := range priorities {
			want[p] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*item.Item
	for _, it := range m.idx.Pending(time.Now()) {
		if want != nil && !want[it.Priority] {
			continue
		}
		out = append(out, it.Clone())
	}
	return out
}

// ListChat returns copies of every non-purged item submitted by the
// chat, oldest first.
func (m *Manager) ListChat(_ context.Context, chatID int64) []*item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*item.Item
	for _, it := range m.items {
		if it.ChatID == chatID {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Seq < out[k].Seq })
	return out
}

// ChatStatistics summarizes one chat's non-purged items by state.
type ChatStatistics struct {
	ChatID    int64 `json:"chatId"`
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Running   int   `json:"running"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Cancelled int   `json:"cancelled"`
}

// ChatStatistics reports how many of the chat's items are in each
// state. Purged items are not counted.
func (m *Manager) ChatStatistics(_ context.Context, chatID int64) ChatStatistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := ChatStatistics{ChatID: chatID}
	for _, it := range m.items {
		if it.ChatID != chatID {
			continue
		}
		cs.Total++
		switch it.State {
		case item.StatePending:
			cs.Pending++
		case item.StateRunning:
			cs.Running++
		case item.StateSucceeded:
			cs.Succeeded++
		case item.StateFailed:
			cs.Failed++
		case item.StateCancelled:
			cs.Cancelled++
		}
	}
	return cs
}

// Position returns the 1-based dequeue position of a pending item, or 0
// when the item is not pending.
func (m *Manager) Position(_ context.Context, itemID id.ItemID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.idx.Pending(time.Now()) {
		if it.ID == itemID {
			return i + 1
		}
	}
	return 0
}

// ClearChat cancels every pending item of the chat and requests
// cancellation of its running items. It returns the number of items
// affected.
func (m *Manager) ClearChat(ctx context.Context, chatID int64) int {
	m.mu.Lock()
	var ids []id.ItemID
	for _, it := range m.items {
		if it.ChatID == chatID && !it.State.Terminal() {
			ids = append(ids, it.ID)
		}
	}
	m.mu.Unlock()

	count := 0
	for _, itemID := range ids {
		if _, err := m.Cancel(ctx, itemID); err == nil {
			count++
		}
	}
	return count
}

// Purge drops terminal items past the retention age and trims the
// terminal history to MaxTerminalItems, newest kept. It returns the
// number of items removed.
func (m *Manager) Purge(now time.Time) int {
	if m.cfg.RetentionAge <= 0 && m.cfg.MaxTerminalItems <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var terminals []*item.Item
	for _, it := range m.items {
		if it.State.Terminal() {
			terminals = append(terminals, it)
		}
	}
	sort.Slice(terminals, func(i, k int) bool {
		return completedAt(terminals[i]).Before(completedAt(terminals[k]))
	})

	removed := 0
	cutoff := now.Add(-m.cfg.RetentionAge)
	for _, it := range terminals {
		overAge := m.cfg.RetentionAge > 0 && completedAt(it).Before(cutoff)
		overCount := m.cfg.MaxTerminalItems > 0 &&
			len(terminals)-removed > m.cfg.MaxTerminalItems
		if !overAge && !overCount {
			break
		}
		delete(m.items, it.ID.String())
		m.agg.ObservePurged(it.Priority, it.State)
		removed++
	}
	if removed > 0 {
		m.markDirtyLocked()
	}
	return removed
}

func completedAt(it *item.Item) time.Time {
	if it.CompletedAt != nil {
		return *it.CompletedAt
	}
	return it.SubmittedAt
}

// releaseQuotaLocked pairs a successful quota acquisition when the item
// reaches a terminal state.
func (m *Manager) releaseQuotaLocked(it *item.Item) {
	if m.guard != nil && it.ChatID != 0 {
		m.guard.Release(it.ChatID)
	}
}

func (m *Manager) markDirtyLocked() {
	m.dirty++
	if m.snapStore != nil && m.cfg.DirtyThreshold > 0 && m.dirty >= m.cfg.DirtyThreshold {
		select {
		case m.snapCh <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) wakeWorkers() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
