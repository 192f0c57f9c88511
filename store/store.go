// Package store defines the snapshot persistence interface. Backends:
// memory (tests), file (single-process bots), Redis, and Postgres.
package store

import (
	"context"

	"github.com/aajunior43/bottelegramvideo/snapshot"
)

// Store persists queue snapshots. Save overwrites the previous
// snapshot; the queue keeps exactly one current image per store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save writes snap as the current snapshot.
	Save(ctx context.Context, snap *snapshot.Snapshot) error

	// Load returns the current snapshot, or botqueue.ErrSnapshotNotFound
	// when none has been saved.
	Load(ctx context.Context) (*snapshot.Snapshot, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
