package botqueue

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds configuration for the queue manager. It is validated once
// at construction and never mutated afterwards.
type Config struct {
	// WorkerCount is the number of concurrent worker executors.
	WorkerCount int

	// MaxRetries is the maximum number of retry attempts for transient
	// failures. An item that fails transiently MaxRetries+1 times in
	// total becomes failed.
	MaxRetries int

	// BaseBackoff is the delay before the first retry. It doubles on
	// each subsequent attempt.
	BaseBackoff time.Duration

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration

	// AgingThreshold is how long a pending item may wait before it is
	// promoted one priority band. Zero disables aging.
	AgingThreshold time.Duration

	// SnapshotInterval is how often queue state is snapshotted to the
	// persistence store.
	SnapshotInterval time.Duration

	// DirtyThreshold triggers an immediate snapshot once this many
	// state changes have accumulated since the last one.
	DirtyThreshold int

	// PollInterval is how often an idle worker re-checks the index.
	// Workers also wake immediately on submission and requeue; the poll
	// covers aging promotions and retry backoff expiry.
	PollInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// before active items are cancelled.
	ShutdownTimeout time.Duration

	// MaxQueueSize bounds the number of pending items. Submissions
	// beyond it fail with ErrQueueFull. Zero means no limit.
	MaxQueueSize int

	// RetentionAge is how long terminal items are kept before the
	// janitor purges them. Zero disables age-based purging.
	RetentionAge time.Duration

	// MaxTerminalItems caps the number of terminal items retained;
	// the oldest are purged first. Zero means no cap.
	MaxTerminalItems int

	// CleanupInterval is how often the retention janitor runs.
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:      4,
		MaxRetries:       3,
		BaseBackoff:      1 * time.Second,
		MaxBackoff:       1 * time.Minute,
		AgingThreshold:   5 * time.Minute,
		SnapshotInterval: 30 * time.Second,
		DirtyThreshold:   25,
		PollInterval:     250 * time.Millisecond,
		ShutdownTimeout:  30 * time.Second,
		MaxQueueSize:     1000,
		RetentionAge:     24 * time.Hour,
		MaxTerminalItems: 100,
		CleanupInterval:  5 * time.Minute,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.WorkerCount <= 0:
		return fmt.Errorf("botqueue: workerCount must be positive, got %d", c.WorkerCount)
	case c.MaxRetries < 0:
		return fmt.Errorf("botqueue: maxRetries must not be negative, got %d", c.MaxRetries)
	case c.BaseBackoff < 0 || c.MaxBackoff < 0:
		return fmt.Errorf("botqueue: backoff durations must not be negative")
	case c.MaxBackoff > 0 && c.BaseBackoff > c.MaxBackoff:
		return fmt.Errorf("botqueue: baseBackoffMs %v exceeds maxBackoffMs %v", c.BaseBackoff, c.MaxBackoff)
	case c.DirtyThreshold < 0:
		return fmt.Errorf("botqueue: dirtyThreshold must not be negative, got %d", c.DirtyThreshold)
	case c.PollInterval <= 0:
		return fmt.Errorf("botqueue: pollIntervalMs must be positive, got %v", c.PollInterval)
	case c.MaxQueueSize < 0:
		return fmt.Errorf("botqueue: maxQueueSize must not be negative, got %d", c.MaxQueueSize)
	}
	return nil
}

// Apply overlays string-keyed options (for example from the bot's
// environment or settings file) onto the config. Unrecognized keys are
// rejected with ErrUnknownOption rather than silently ignored.
func (c *Config) Apply(options map[string]string) error {
	for key, value := range options {
		if err := c.applyOption(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyOption(key, value string) error {
	switch key {
	case "workerCount":
		return setInt(key, value, &c.WorkerCount)
	case "maxRetries":
		return setInt(key, value, &c.MaxRetries)
	case "baseBackoffMs":
		return setMillis(key, value, &c.BaseBackoff)
	case "maxBackoffMs":
		return setMillis(key, value, &c.MaxBackoff)
	case "agingThresholdMs":
		return setMillis(key, value, &c.AgingThreshold)
	case "snapshotIntervalMs":
		return setMillis(key, value, &c.SnapshotInterval)
	case "dirtyThreshold":
		return setInt(key, value, &c.DirtyThreshold)
	case "pollIntervalMs":
		return setMillis(key, value, &c.PollInterval)
	case "shutdownTimeoutMs":
		return setMillis(key, value, &c.ShutdownTimeout)
	case "maxQueueSize":
		return setInt(key, value, &c.MaxQueueSize)
	case "retentionAgeMs":
		return setMillis(key, value, &c.RetentionAge)
	case "maxTerminalItems":
		return setInt(key, value, &c.MaxTerminalItems)
	case "cleanupIntervalMs":
		return setMillis(key, value, &c.CleanupInterval)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}
}

func setInt(key, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("botqueue: option %q: %w", key, err)
	}
	*dst = n
	return nil
}

func setMillis(key, value string, dst *time.Duration) error {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("botqueue: option %q: %w", key, err)
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
