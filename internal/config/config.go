// Package config handles configuration loading, validation, and management
// for proctord.
package config

import (
	"time"

	"proctord/internal/engine"
	"proctord/internal/privacy"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Journal configuration for the SQLite event journal.
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`

	// Health configuration for the HTTP health endpoint.
	Health HealthConfig `toml:"health" json:"health" yaml:"health"`

	// Metrics configuration for the metrics endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// Defaults apply to every watcher unless overridden per domain.
	Defaults WatcherSettings `toml:"defaults" json:"defaults" yaml:"defaults"`

	// Watchers holds per-domain overrides keyed by domain name.
	Watchers map[string]WatcherSettings `toml:"watchers" json:"watchers" yaml:"watchers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: stdout or stderr.
	Output string `toml:"output" json:"output" yaml:"output"`
}

// JournalConfig holds event journal configuration.
type JournalConfig struct {
	// Enabled turns on persistence of emitted events.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file path.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetainDays is how long events are kept before pruning.
	// Zero disables pruning.
	RetainDays int `toml:"retain_days" json:"retain_days" yaml:"retain_days"`
}

// HealthConfig holds the health endpoint configuration.
type HealthConfig struct {
	// Enabled turns on the HTTP health endpoint.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Addr is the listen address, e.g. "127.0.0.1:8943".
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// MetricsConfig holds the metrics endpoint configuration.
type MetricsConfig struct {
	// Enabled turns on the metrics endpoint.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Addr is the listen address. Empty reuses the health listener.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// ThresholdSettings holds detected cutoffs for confidence-based domains.
// Fields are pointers because zero is a legitimate cutoff; unset means
// inherit from the daemon-wide defaults.
type ThresholdSettings struct {
	Recording *float64 `toml:"recording" json:"recording,omitempty" yaml:"recording,omitempty"`
	Overlay   *float64 `toml:"overlay" json:"overlay,omitempty" yaml:"overlay,omitempty"`
}

// WatcherSettings tunes one watcher domain. Unset fields inherit from the
// daemon-wide defaults; fields where zero or empty is itself meaningful
// (thresholds, the dedup window, the blacklist) are pointers or carry a
// nil-versus-empty distinction so an override can state them explicitly.
type WatcherSettings struct {
	// Enabled controls whether the domain's watcher is started.
	// Unset means enabled.
	Enabled *bool `toml:"enabled" json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// PollIntervalMs is the tick rate in milliseconds.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// HeartbeatIntervalMs is the liveness-event cadence in milliseconds.
	HeartbeatIntervalMs int `toml:"heartbeat_interval_ms" json:"heartbeat_interval_ms" yaml:"heartbeat_interval_ms"`

	// Blacklist adds "blacklist" evidence for matching snapshot elements.
	// Nil inherits; an explicit empty list clears the inherited one.
	Blacklist []string `toml:"blacklist" json:"blacklist" yaml:"blacklist"`

	// Thresholds are the boolean-detected cutoffs.
	Thresholds ThresholdSettings `toml:"thresholds" json:"thresholds" yaml:"thresholds"`

	// MinEventIntervalMs is the per-fingerprint suppression window.
	// Zero disables the window; unset inherits.
	MinEventIntervalMs *int `toml:"min_event_interval_ms" json:"min_event_interval_ms,omitempty" yaml:"min_event_interval_ms,omitempty"`

	// PrivacyMode is METADATA_ONLY, REDACTED, or FULL.
	PrivacyMode string `toml:"privacy_mode" json:"privacy_mode" yaml:"privacy_mode"`

	// PreviewLen caps content previews in FULL mode.
	PreviewLen int `toml:"preview_len" json:"preview_len" yaml:"preview_len"`

	// ShortPreviewLen caps content previews in REDACTED mode.
	ShortPreviewLen int `toml:"short_preview_len" json:"short_preview_len" yaml:"short_preview_len"`

	// DedupTTLSec is the fingerprint cache entry lifetime in seconds.
	DedupTTLSec int `toml:"dedup_ttl_sec" json:"dedup_ttl_sec" yaml:"dedup_ttl_sec"`

	// DedupMaxEntries is the hard fingerprint cache cap.
	DedupMaxEntries int `toml:"dedup_max_entries" json:"dedup_max_entries" yaml:"dedup_max_entries"`
}

// IsEnabled reports whether the domain should be started.
func (s WatcherSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Merged overlays s on top of base: unset fields in s inherit from base.
func (s WatcherSettings) Merged(base WatcherSettings) WatcherSettings {
	out := s
	if out.Enabled == nil {
		out.Enabled = base.Enabled
	}
	if out.PollIntervalMs == 0 {
		out.PollIntervalMs = base.PollIntervalMs
	}
	if out.HeartbeatIntervalMs == 0 {
		out.HeartbeatIntervalMs = base.HeartbeatIntervalMs
	}
	if out.Blacklist == nil {
		out.Blacklist = append([]string(nil), base.Blacklist...)
	}
	if out.Thresholds.Recording == nil {
		out.Thresholds.Recording = base.Thresholds.Recording
	}
	if out.Thresholds.Overlay == nil {
		out.Thresholds.Overlay = base.Thresholds.Overlay
	}
	if out.MinEventIntervalMs == nil {
		out.MinEventIntervalMs = base.MinEventIntervalMs
	}
	if out.PrivacyMode == "" {
		out.PrivacyMode = base.PrivacyMode
	}
	if out.PreviewLen == 0 {
		out.PreviewLen = base.PreviewLen
	}
	if out.ShortPreviewLen == 0 {
		out.ShortPreviewLen = base.ShortPreviewLen
	}
	if out.DedupTTLSec == 0 {
		out.DedupTTLSec = base.DedupTTLSec
	}
	if out.DedupMaxEntries == 0 {
		out.DedupMaxEntries = base.DedupMaxEntries
	}
	return out
}

// EngineConfig converts settings into an engine configuration.
func (s WatcherSettings) EngineConfig() (*engine.Config, error) {
	mode, err := privacy.ParseMode(s.PrivacyMode)
	if err != nil {
		return nil, err
	}

	cfg := &engine.Config{
		PollInterval:      time.Duration(s.PollIntervalMs) * time.Millisecond,
		HeartbeatInterval: time.Duration(s.HeartbeatIntervalMs) * time.Millisecond,
		Blacklist:         append([]string(nil), s.Blacklist...),
		Thresholds: engine.Thresholds{
			Recording: deref(s.Thresholds.Recording),
			Overlay:   deref(s.Thresholds.Overlay),
		},
		MinEventInterval: time.Duration(deref(s.MinEventIntervalMs)) * time.Millisecond,
		Privacy: privacy.Policy{
			Mode:            mode,
			PreviewLen:      s.PreviewLen,
			ShortPreviewLen: s.ShortPreviewLen,
		},
		DedupTTL: time.Duration(s.DedupTTLSec) * time.Second,
		DedupCap: s.DedupMaxEntries,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatcherConfig returns the effective engine configuration for a domain,
// merging per-domain overrides over the daemon defaults.
func (c *Config) WatcherConfig(domain string) (*engine.Config, error) {
	settings := c.Defaults
	if override, ok := c.Watchers[domain]; ok {
		settings = override.Merged(c.Defaults)
	}
	return settings.EngineConfig()
}

// WatcherEnabled reports whether a domain should be started.
func (c *Config) WatcherEnabled(domain string) bool {
	if override, ok := c.Watchers[domain]; ok {
		return override.Merged(c.Defaults).IsEnabled()
	}
	return c.Defaults.IsEnabled()
}

func ptr[T any](v T) *T {
	return &v
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
