package botqueue

import "errors"

var (
	// Input validation errors, surfaced synchronously to the submitter.
	ErrInvalidPriority = errors.New("botqueue: invalid priority")
	ErrUnknownOption   = errors.New("botqueue: unknown configuration option")
	ErrQueueFull       = errors.New("botqueue: queue is full")
	ErrQuotaExceeded   = errors.New("botqueue: chat quota exceeded")

	// State errors.
	ErrInvalidTransition = errors.New("botqueue: invalid state transition")
	ErrItemNotFound      = errors.New("botqueue: item not found")
	ErrManagerClosed     = errors.New("botqueue: manager closed")

	// Persistence errors. Snapshot load/save failures degrade to
	// in-memory operation and never halt scheduling.
	ErrSnapshotNotFound = errors.New("botqueue: snapshot not found")
	ErrSnapshotVersion  = errors.New("botqueue: unsupported snapshot version")

	// ErrNoProcessor is returned when a manager is built without a
	// processing callback.
	ErrNoProcessor = errors.New("botqueue: no processor configured")
)
