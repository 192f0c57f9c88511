// Package snapshot defines the persisted queue image and the codecs
// that serialize it. A snapshot captures every non-purged item plus the
// statistics counters and the submission sequence, enough to rebuild
// the queue after a restart.
package snapshot

import (
	"fmt"
	"time"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/stats"
)

// Version is the current snapshot format version. Loaders reject
// snapshots from a newer format rather than misread them.
const Version = 1

// Snapshot is the full persisted queue image.
type Snapshot struct {
	Version int          `json:"version" msgpack:"version"`
	TakenAt time.Time    `json:"takenAt" msgpack:"takenAt"`
	Seq     uint64       `json:"seq" msgpack:"seq"`
	Items   []*item.Item `json:"items" msgpack:"items"`
	Stats   stats.State  `json:"stats" msgpack:"stats"`
}

// New builds a snapshot of the given items and statistics state taken
// at now. Items are deep-copied so the snapshot can be serialized off
// the queue's critical path.
func New(items []*item.Item, st stats.State, seq uint64, now time.Time) *Snapshot {
	copied := make([]*item.Item, len(items))
	for i, it := range items {
		copied[i] = it.Clone()
	}
	return &Snapshot{
		Version: Version,
		TakenAt: now.UTC(),
		Seq:     seq,
		Items:   copied,
		Stats:   st,
	}
}

// Validate checks the snapshot is loadable by this version of the
// queue.
func (s *Snapshot) Validate() error {
	if s.Version < 1 || s.Version > Version {
		return fmt.Errorf("%w: got version %d, support up to %d",
			botqueue.ErrSnapshotVersion, s.Version, Version)
	}
	return nil
}
