package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aajunior43/bottelegramvideo/event"
	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/worker"
)

// Manager implements worker.Queue.
var _ worker.Queue = (*Manager)(nil)

// Claim dequeues the highest-priority eligible item and marks it
// running. The returned context is cancelled when the item's
// cancellation is requested.
func (m *Manager) Claim(_ context.Context) (*item.Item, context.Context, bool) {
	now := time.Now().UTC()

	m.mu.Lock()
	it := m.idx.Pop(now)
	if it == nil {
		m.mu.Unlock()
		return nil, nil, false
	}

	if err := it.Transition(item.StateRunning, now); err != nil {
		// Should be impossible for an indexed item; drop it back rather
		// than lose it.
		m.logger.Error("claim transition failed",
			slog.String("item_id", it.ID.String()),
			slog.String("state", string(it.State)),
			slog.String("error", err.Error()),
		)
		m.idx.Push(it)
		m.mu.Unlock()
		return nil, nil, false
	}

	started := now
	it.StartedAt = &started
	it.Attempts++
	m.agg.ObserveStart(it.Priority)

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancels[it.ID.String()] = cancel

	m.bus.Publish(event.FromItem(event.KindStarted, it.Clone(), item.StatePending, now))
	m.mu.Unlock()

	return it, runCtx, true
}

// Finish settles a claimed item: success, cooperative cancellation,
// retry with backoff, or terminal failure. Interrupted items during
// shutdown return to pending without consuming retry budget.
func (m *Manager) Finish(_ context.Context, it *item.Item, procErr error) {
	now := time.Now().UTC()

	m.mu.Lock()

	if cancel, ok := m.cancels[it.ID.String()]; ok {
		delete(m.cancels, it.ID.String())
		defer cancel()
	}

	from := it.State

	var kind event.Kind
	switch {
	case it.CancelRequested:
		// Cancellation wins even over a processor that ignored the
		// request and returned success; the result is discarded.
		if err := it.Transition(item.StateCancelled, now); err != nil {
			m.logFinishTransition(it, err)
			m.mu.Unlock()
			return
		}
		m.agg.ObserveDone(it.Priority, item.StateCancelled, 0)
		m.releaseQuotaLocked(it)
		kind = event.KindCancelled

	case procErr == nil:
		it.LastError = ""
		if err := it.Transition(item.StateSucceeded, now); err != nil {
			m.logFinishTransition(it, err)
			m.mu.Unlock()
			return
		}
		m.agg.ObserveDone(it.Priority, item.StateSucceeded, it.ProcessingTime())
		m.releaseQuotaLocked(it)
		kind = event.KindSucceeded

	case m.isShutdownInterrupt(procErr):
		// The pool cancelled the processor on shutdown; the attempt
		// never really ran to a verdict. Put the item back for the next
		// start without charging the retry budget.
		if err := it.Transition(item.StatePending, now); err != nil {
			m.logFinishTransition(it, err)
			m.mu.Unlock()
			return
		}
		if it.Attempts > 0 {
			it.Attempts--
		}
		it.StartedAt = nil
		it.RunAt = now
		m.agg.ObserveRetry(it.Priority)
		m.idx.Push(it)
		kind = event.KindRetried

	case m.policy.ShouldRetry(it.Attempts, procErr):
		it.LastError = procErr.Error()
		if err := it.Transition(item.StatePending, now); err != nil {
			m.logFinishTransition(it, err)
			m.mu.Unlock()
			return
		}
		delay := m.policy.Delay(it.Attempts)
		it.StartedAt = nil
		it.RunAt = now.Add(delay)
		m.agg.ObserveRetry(it.Priority)
		m.idx.Push(it)
		kind = event.KindRetried

		m.logger.Info("item scheduled for retry",
			slog.String("item_id", it.ID.String()),
			slog.Int("attempt", it.Attempts),
			slog.Int("max_retries", m.policy.MaxRetries),
			slog.Duration("delay", delay),
		)

	default:
		it.LastError = procErr.Error()
		if err := it.Transition(item.StateFailed, now); err != nil {
			m.logFinishTransition(it, err)
			m.mu.Unlock()
			return
		}
		m.agg.ObserveDone(it.Priority, item.StateFailed, it.ProcessingTime())
		m.releaseQuotaLocked(it)
		kind = event.KindFailed

		m.logger.Warn("item failed",
			slog.String("item_id", it.ID.String()),
			slog.Int("attempts", it.Attempts),
			slog.String("error", procErr.Error()),
		)
	}

	m.markDirtyLocked()
	m.bus.Publish(event.FromItem(kind, it.Clone(), from, now))
	m.mu.Unlock()

	if kind == event.KindRetried {
		m.wakeWorkers()
	}
}

// isShutdownInterrupt reports whether procErr is the context
// cancellation injected by pool shutdown rather than a processor
// verdict.
func (m *Manager) isShutdownInterrupt(procErr error) bool {
	return m.closed && errors.Is(procErr, context.Canceled)
}

func (m *Manager) logFinishTransition(it *item.Item, err error) {
	m.logger.Error("finish transition failed",
		slog.String("item_id", it.ID.String()),
		slog.String("state", string(it.State)),
		slog.String("error", err.Error()),
	)
}

// Wake returns the channel the pool parks on between polls.
func (m *Manager) Wake() <-chan struct{} { return m.wake }
