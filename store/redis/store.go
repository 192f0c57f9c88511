// Package redis implements store.Store on Redis. The snapshot is kept
// as a single msgpack-encoded value, suitable for bots that already run
// a Redis instance and want the snapshot to survive host replacement.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/snapshot"
	"github.com/aajunior43/bottelegramvideo/store"
)

var _ store.Store = (*Store)(nil)

// snapshotKey is the Redis key holding the current snapshot.
const snapshotKey = "botqueue:snapshot"

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCodec sets the snapshot codec. Defaults to msgpack.
func WithCodec(c snapshot.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithKey overrides the snapshot key, for running several queues
// against one Redis instance.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// Store implements store.Store backed by Redis.
type Store struct {
	client redis.Cmdable
	codec  snapshot.Codec
	key    string
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		codec:  snapshot.MsgpackCodec{},
		key:    snapshotKey,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.Cmdable { return s.client }

// Save writes the snapshot under the configured key.
func (s *Store) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("store/redis: set snapshot: %w", err)
	}
	return nil
}

// Load reads the current snapshot.
func (s *Store) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, botqueue.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/redis: get snapshot: %w", err)
	}
	return s.codec.Decode(data)
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
