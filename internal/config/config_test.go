package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"proctord/internal/privacy"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestMergedInheritsUnsetFields(t *testing.T) {
	base := Default().Defaults
	override := WatcherSettings{PollIntervalMs: 500}

	merged := override.Merged(base)
	if merged.PollIntervalMs != 500 {
		t.Errorf("override lost: poll=%d", merged.PollIntervalMs)
	}
	if merged.HeartbeatIntervalMs != base.HeartbeatIntervalMs {
		t.Errorf("heartbeat not inherited: %d", merged.HeartbeatIntervalMs)
	}
	if merged.PrivacyMode != "METADATA_ONLY" {
		t.Errorf("privacy mode not inherited: %q", merged.PrivacyMode)
	}
	if merged.Thresholds.Recording == nil || *merged.Thresholds.Recording != 0.75 {
		t.Errorf("threshold not inherited: %v", merged.Thresholds.Recording)
	}
}

func TestMergedHonorsExplicitZeroOverrides(t *testing.T) {
	base := Default().Defaults
	base.Blacklist = []string{"obs"}

	override := WatcherSettings{
		MinEventIntervalMs: ptr(0),
		Blacklist:          []string{},
		Thresholds:         ThresholdSettings{Recording: ptr(0.0)},
	}
	merged := override.Merged(base)

	if merged.MinEventIntervalMs == nil || *merged.MinEventIntervalMs != 0 {
		t.Errorf("explicit zero dedup window lost: %v", merged.MinEventIntervalMs)
	}
	if merged.Blacklist == nil || len(merged.Blacklist) != 0 {
		t.Errorf("explicit empty blacklist lost: %v", merged.Blacklist)
	}
	if merged.Thresholds.Recording == nil || *merged.Thresholds.Recording != 0 {
		t.Errorf("explicit zero threshold lost: %v", merged.Thresholds.Recording)
	}
	// Untouched fields still inherit.
	if merged.Thresholds.Overlay == nil || *merged.Thresholds.Overlay != 0.5 {
		t.Errorf("overlay threshold not inherited: %v", merged.Thresholds.Overlay)
	}
	if merged.PollIntervalMs != base.PollIntervalMs {
		t.Errorf("poll not inherited: %d", merged.PollIntervalMs)
	}
}

func TestLoadDistinguishesZeroFromAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proctord.toml")
	data := `
version = 1

[defaults]
blacklist = ["obs"]

[watchers.process]
min_event_interval_ms = 0
blacklist = []
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	proc, err := cfg.WatcherConfig("process")
	if err != nil {
		t.Fatalf("WatcherConfig: %v", err)
	}
	if proc.MinEventInterval != 0 {
		t.Errorf("explicit zero window = %v, want 0", proc.MinEventInterval)
	}
	if proc.InBlacklist("obs") {
		t.Error("explicit empty blacklist should clear the inherited one")
	}

	screen, err := cfg.WatcherConfig("screen")
	if err != nil {
		t.Fatalf("WatcherConfig: %v", err)
	}
	if screen.MinEventInterval != 2*time.Second {
		t.Errorf("absent window = %v, want inherited 2s", screen.MinEventInterval)
	}
	if !screen.InBlacklist("obs") {
		t.Error("absent blacklist should inherit the defaults")
	}
}

func TestWatcherConfigAppliesOverrides(t *testing.T) {
	cfg := Default()

	ec, err := cfg.WatcherConfig("clipboard")
	if err != nil {
		t.Fatalf("WatcherConfig: %v", err)
	}
	if ec.PollInterval != 500*time.Millisecond {
		t.Errorf("clipboard poll = %v, want 500ms override", ec.PollInterval)
	}
	if ec.DedupTTL != 300*time.Second {
		t.Errorf("clipboard dedup TTL = %v, want 300s override", ec.DedupTTL)
	}
	// Inherited from defaults.
	if ec.HeartbeatInterval != 15*time.Second {
		t.Errorf("heartbeat = %v, want inherited 15s", ec.HeartbeatInterval)
	}
	if ec.Privacy.Mode != privacy.MetadataOnly {
		t.Errorf("privacy mode = %v, want METADATA_ONLY", ec.Privacy.Mode)
	}
}

func TestWatcherConfigUnknownDomainUsesDefaults(t *testing.T) {
	cfg := Default()
	ec, err := cfg.WatcherConfig("nonexistent")
	if err != nil {
		t.Fatalf("WatcherConfig: %v", err)
	}
	if ec.PollInterval != time.Second {
		t.Errorf("poll = %v, want default 1s", ec.PollInterval)
	}
}

func TestWatcherEnabled(t *testing.T) {
	cfg := Default()
	if !cfg.WatcherEnabled("process") {
		t.Error("watchers should default to enabled")
	}

	off := false
	cfg.Watchers["process"] = WatcherSettings{Enabled: &off}
	if cfg.WatcherEnabled("process") {
		t.Error("explicit disable ignored")
	}
	if !cfg.WatcherEnabled("screen") {
		t.Error("disabling one domain must not affect others")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad version", func(c *Config) { c.Version = 99 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log output", func(c *Config) { c.Logging.Output = "/dev/null" }},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }},
		{"negative retain days", func(c *Config) { c.Journal.RetainDays = -1 }},
		{"bad health addr", func(c *Config) { c.Health.Addr = "not an addr" }},
		{"bad privacy mode", func(c *Config) { c.Defaults.PrivacyMode = "PLAINTEXT" }},
		{"bad watcher override", func(c *Config) {
			c.Watchers["process"] = WatcherSettings{PollIntervalMs: -5}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proctord.toml")

	orig := Default()
	orig.Defaults.Blacklist = []string{"obs", "chrome.exe"}
	orig.Watchers["process"] = WatcherSettings{PollIntervalMs: 750}

	if err := Save(orig, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
	if len(loaded.Defaults.Blacklist) != 2 {
		t.Errorf("blacklist lost in round trip: %v", loaded.Defaults.Blacklist)
	}
	if loaded.Watchers["process"].PollIntervalMs != 750 {
		t.Errorf("override lost in round trip: %+v", loaded.Watchers["process"])
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proctord.yaml")
	data := `
version: 1
defaults:
  poll_interval_ms: 800
  privacy_mode: REDACTED
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Defaults.PollIntervalMs != 800 {
		t.Errorf("poll = %d, want 800", cfg.Defaults.PollIntervalMs)
	}
	if cfg.Defaults.PrivacyMode != "REDACTED" {
		t.Errorf("privacy mode = %q", cfg.Defaults.PrivacyMode)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Version != Version {
		t.Errorf("version = %d, want built-in default", cfg.Version)
	}
}
