// Package memory implements store.Store with an in-process copy of the
// latest snapshot. Nothing survives a restart; it exists for tests and
// for running the queue with persistence disabled.
package memory

import (
	"context"
	"sync"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/snapshot"
	"github.com/aajunior43/bottelegramvideo/store"
)

var _ store.Store = (*Store)(nil)

// Store holds the latest snapshot in memory.
type Store struct {
	mu   sync.RWMutex
	snap *snapshot.Snapshot
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Save keeps snap as the current snapshot.
func (s *Store) Save(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

// Load returns the current snapshot.
func (s *Store) Load(_ context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, botqueue.ErrSnapshotNotFound
	}
	return s.snap, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
