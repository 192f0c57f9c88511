// Package file implements store.Store on the local filesystem, the
// default backend for a single-process bot. Writes are atomic (temp
// file plus rename) and the previous snapshot is kept as a .bak file
// that Load falls back to when the primary is corrupt.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/snapshot"
	"github.com/aajunior43/bottelegramvideo/store"
)

var _ store.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithCodec sets the snapshot codec. Defaults to JSON so operators can
// inspect the snapshot file directly.
func WithCodec(c snapshot.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store persists snapshots to a single file.
type Store struct {
	path   string
	codec  snapshot.Codec
	logger *slog.Logger
}

// New creates a file store writing to path. The parent directory is
// created if missing.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		codec:  snapshot.JSONCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store/file: create dir: %w", err)
	}
	return s, nil
}

func (s *Store) backupPath() string { return s.path + ".bak" }

// Save writes the snapshot atomically: encode, write to a temp file in
// the same directory, fsync, rename over the primary. The previous
// primary is rotated to the backup first.
func (s *Store) Save(_ context.Context, snap *snapshot.Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.backupPath()); err != nil {
			s.logger.Warn("snapshot backup rotation failed", "error", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("store/file: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store/file: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store/file: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store/file: close temp: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store/file: rename: %w", err)
	}
	return nil
}

// Load reads the current snapshot, falling back to the backup file when
// the primary is missing or undecodable. A corrupt primary is reported
// in the log, not as an error, so a bot restart always proceeds.
func (s *Store) Load(_ context.Context) (*snapshot.Snapshot, error) {
	snap, err := s.loadFrom(s.path)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		// First run, or persistence was never enabled before.
		bak, bakErr := s.loadFrom(s.backupPath())
		if bakErr == nil {
			return bak, nil
		}
		return nil, botqueue.ErrSnapshotNotFound
	}

	s.logger.Warn("primary snapshot unreadable, trying backup",
		"path", s.path, "error", err)
	bak, bakErr := s.loadFrom(s.backupPath())
	if bakErr != nil {
		if errors.Is(bakErr, fs.ErrNotExist) {
			return nil, botqueue.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("store/file: both snapshot files unreadable: %w", err)
	}
	return bak, nil
}

func (s *Store) loadFrom(path string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(data)
}

// Ping checks the snapshot directory is accessible.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("store/file: %w", err)
	}
	return nil
}

// Close is a no-op; every Save is self-contained.
func (s *Store) Close() error { return nil }

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
