package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReloaderDeliversValidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	changed := make(chan *Config, 1)
	r, err := NewReloader(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	defer r.Close()

	edited := Default()
	edited.Defaults.PollIntervalMs = 750
	if err := Save(edited, path); err != nil {
		t.Fatalf("Save edit: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Defaults.PollIntervalMs != 750 {
			t.Errorf("reloaded poll = %d, want 750", cfg.Defaults.PollIntervalMs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestReloaderKeepsLastGoodOnInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	changed := make(chan *Config, 1)
	r, err := NewReloader(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	defer r.Close()

	// Broken TOML must be rejected without invoking the callback.
	writeFile(t, path, "version = \"not a number\"")

	select {
	case <-changed:
		t.Fatal("invalid edit reached the callback")
	case <-time.After(1500 * time.Millisecond):
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}
