package botqueue

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"base above max backoff", func(c *Config) {
			c.BaseBackoff = 2 * time.Minute
			c.MaxBackoff = 1 * time.Second
		}},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative queue size", func(c *Config) { c.MaxQueueSize = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestApplyRecognizedOptions(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Apply(map[string]string{
		"workerCount":        "8",
		"maxRetries":         "5",
		"baseBackoffMs":      "500",
		"maxBackoffMs":       "120000",
		"agingThresholdMs":   "60000",
		"snapshotIntervalMs": "10000",
		"dirtyThreshold":     "50",
	})
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}

	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", cfg.WorkerCount)
	}
	if cfg.BaseBackoff != 500*time.Millisecond {
		t.Errorf("BaseBackoff = %v, want 500ms", cfg.BaseBackoff)
	}
	if cfg.AgingThreshold != time.Minute {
		t.Errorf("AgingThreshold = %v, want 1m", cfg.AgingThreshold)
	}
}

func TestApplyRejectsUnknownOption(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Apply(map[string]string{"workerCoutn": "8"})
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestApplyRejectsMalformedValue(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Apply(map[string]string{"workerCount": "many"}); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
