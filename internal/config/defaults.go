package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Journal: JournalConfig{
			Enabled:    true,
			Path:       defaultJournalPath(),
			RetainDays: 7,
		},
		Health: HealthConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8943",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Defaults: WatcherSettings{
			PollIntervalMs:      1000,
			HeartbeatIntervalMs: 15000,
			Thresholds: ThresholdSettings{
				Recording: ptr(0.75),
				Overlay:   ptr(0.5),
			},
			MinEventIntervalMs: ptr(2000),
			PrivacyMode:        "METADATA_ONLY",
			PreviewLen:         256,
			ShortPreviewLen:    32,
			DedupTTLSec:        60,
			DedupMaxEntries:    1000,
		},
		Watchers: map[string]WatcherSettings{
			// Clipboard changes are frequent; poll fast, dedup long.
			"clipboard": {
				PollIntervalMs: 500,
				DedupTTLSec:    300,
			},
			// Device hotplug is rare; poll slowly.
			"device": {
				PollIntervalMs: 5000,
				DedupTTLSec:    30,
			},
			"bluetooth": {
				PollIntervalMs: 10000,
				DedupTTLSec:    30,
			},
			// Idle/focus edges need a fast tick to be useful.
			"idle": {
				PollIntervalMs: 250,
			},
			"process": {
				PollIntervalMs: 2000,
			},
			"screen": {
				PollIntervalMs: 2000,
			},
			"notification": {
				PollIntervalMs: 1000,
			},
			"vm": {
				PollIntervalMs:      10000,
				HeartbeatIntervalMs: 30000,
			},
		},
	}
}

// defaultJournalPath returns the platform-specific journal location.
func defaultJournalPath() string {
	switch runtime.GOOS {
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", "proctord", "events.db")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "proctord", "events.db")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			homeDir, _ := os.UserHomeDir()
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
		return filepath.Join(dataHome, "proctord", "events.db")
	}
}
