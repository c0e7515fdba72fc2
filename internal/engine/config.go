package engine

import (
	"errors"
	"fmt"
	"time"

	"proctord/internal/privacy"
)

// Thresholds holds the boolean-detected cutoffs for confidence-based
// domains.
type Thresholds struct {
	Recording float64
	Overlay   float64
}

// Config tunes one watcher. Invalid values are rejected synchronously by
// Validate at the call site that sets them, never surfaced mid-loop.
type Config struct {
	// PollInterval is the tick rate. Observed domain range 100ms-10s.
	PollInterval time.Duration

	// HeartbeatInterval is the liveness-event cadence when no state
	// change occurs. Independent of the poll interval; observed 5s-30s.
	HeartbeatInterval time.Duration

	// Blacklist adds "blacklist" evidence for matching snapshot
	// elements (process names, app identifiers).
	Blacklist []string

	// Thresholds are the detected cutoffs per concern.
	Thresholds Thresholds

	// MinEventInterval is the per-fingerprint suppression window.
	MinEventInterval time.Duration

	// Privacy controls how much raw content payloads carry.
	Privacy privacy.Policy

	// DedupTTL is the fingerprint cache entry lifetime.
	DedupTTL time.Duration

	// DedupCap is the hard fingerprint cache size limit.
	DedupCap int
}

// DefaultConfig returns the engine defaults used when a field is unset.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:      time.Second,
		HeartbeatInterval: 15 * time.Second,
		Thresholds:        Thresholds{Recording: 0.75, Overlay: 0.5},
		MinEventInterval:  2 * time.Second,
		Privacy:           privacy.DefaultPolicy(),
		DedupTTL:          DefaultDedupTTL,
		DedupCap:          DefaultDedupCap,
	}
}

// Validate checks the configuration for values that must be rejected at
// the call site.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("engine: nil config")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("engine: poll interval must be positive, got %v", c.PollInterval)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("engine: heartbeat interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.MinEventInterval < 0 {
		return fmt.Errorf("engine: min event interval cannot be negative, got %v", c.MinEventInterval)
	}
	if c.DedupTTL < 0 {
		return fmt.Errorf("engine: dedup TTL cannot be negative, got %v", c.DedupTTL)
	}
	if c.DedupCap < 0 {
		return fmt.Errorf("engine: dedup cap cannot be negative, got %v", c.DedupCap)
	}
	if !c.Privacy.Mode.Valid() {
		return fmt.Errorf("engine: invalid privacy mode %v", c.Privacy.Mode)
	}
	if err := validateThreshold("recording", c.Thresholds.Recording); err != nil {
		return err
	}
	if err := validateThreshold("overlay", c.Thresholds.Overlay); err != nil {
		return err
	}
	return nil
}

func validateThreshold(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("engine: %s threshold must be in [0,1], got %v", name, v)
	}
	return nil
}

// Clone returns a deep copy, so callers can derive updated configs
// without mutating the one the loop goroutine reads.
func (c *Config) Clone() *Config {
	out := *c
	out.Blacklist = append([]string(nil), c.Blacklist...)
	return &out
}

// InBlacklist reports whether name matches a blacklist entry.
func (c *Config) InBlacklist(name string) bool {
	for _, b := range c.Blacklist {
		if b == name {
			return true
		}
	}
	return false
}
