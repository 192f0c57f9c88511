// Package botqueue provides the background download queue for the
// bottelegramvideo bot: priority ordering with aging, a bounded pool of
// concurrent workers, retry with exponential backoff, lifecycle events,
// rolling statistics, and crash-safe snapshot persistence.
//
// botqueue is designed as a library, not a service. The bot's command
// handlers submit work through a manager.Manager owned by the process
// composition root; the actual download/transform logic is supplied by the
// caller as a processing callback and stays outside the queue core.
//
// # Quick Start
//
//	snaps, err := file.New("queue/snapshot.json")
//	if err != nil { ... }
//	m, err := manager.New(botqueue.DefaultConfig(),
//	    manager.WithProcessor(process),
//	    manager.WithSnapshotStore(snaps),
//	)
//	if err != nil { ... }
//	if err := m.Start(ctx); err != nil { ... }
//
// # Architecture
//
// Each subsystem lives in its own package: item (data model and state
// machine), index (priority ordering), worker (pool and executor), retry
// (failure classification and backoff), stats (aggregation), event
// (transition fan-out), snapshot + store/* (persistence). The manager
// package composes them.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package botqueue
