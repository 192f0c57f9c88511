package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/snapshot"
	"github.com/aajunior43/bottelegramvideo/stats"
)

// snapshotLoop writes snapshots on the configured interval and when the
// dirty-change threshold trips, whichever comes first.
func (m *Manager) snapshotLoop() {
	defer m.bg.Done()

	ticker := time.NewTicker(m.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
		case <-m.snapCh:
		}

		if err := m.writeSnapshot(context.Background(), false); err != nil {
			m.logger.Error("snapshot write failed", slog.String("error", err.Error()))
		}
	}
}

// writeSnapshot captures the queue image under the lock and saves it
// outside it, so a slow store never stalls submissions or workers.
func (m *Manager) writeSnapshot(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.dirty == 0 && !force {
		m.mu.Unlock()
		return nil
	}
	items := make([]*item.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	snap := snapshot.New(items, m.agg.Export(), m.seq, time.Now())
	m.dirty = 0
	m.mu.Unlock()

	if err := m.snapStore.Save(ctx, snap); err != nil {
		return err
	}

	m.logger.Debug("snapshot written",
		slog.Int("items", len(snap.Items)),
		slog.Uint64("seq", snap.Seq),
	)
	return nil
}

// recoverFromSnapshot rebuilds queue state from the persisted image.
// Items that were running when the process died return to pending with
// the interrupted attempt refunded. A missing or unreadable snapshot
// starts the queue empty; the bot must come up either way.
func (m *Manager) recoverFromSnapshot(ctx context.Context) {
	snap, err := m.snapStore.Load(ctx)
	if errors.Is(err, botqueue.ErrSnapshotNotFound) {
		return
	}
	if err != nil {
		m.logger.Warn("snapshot unreadable, starting empty",
			slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.agg = stats.FromState(snap.Stats)
	m.seq = snap.Seq

	recovered := 0
	for _, it := range snap.Items {
		if it.State == item.StateRunning {
			if err := it.Transition(item.StatePending, now); err != nil {
				m.logger.Error("recovery transition failed",
					slog.String("item_id", it.ID.String()),
					slog.String("error", err.Error()))
				continue
			}
			if it.Attempts > 0 {
				it.Attempts--
			}
			it.StartedAt = nil
			it.RunAt = now
			it.CancelRequested = false
		}

		m.items[it.ID.String()] = it
		if it.State == item.StatePending {
			m.idx.Push(it)
			m.agg.ObserveRecovered(it.Priority)
			recovered++
		}
	}

	m.logger.Info("queue recovered from snapshot",
		slog.Int("items", len(snap.Items)),
		slog.Int("pending", recovered),
		slog.Time("taken_at", snap.TakenAt),
	)
}
