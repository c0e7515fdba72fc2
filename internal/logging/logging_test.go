package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("empty format should default to text, got %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format should error")
	}
}

func TestShouldRedact(t *testing.T) {
	redacted := []string{
		"password", "user_password", "api_key", "apikey",
		"auth_token", "content_preview", "SECRET",
	}
	for _, key := range redacted {
		if !shouldRedact(key) {
			t.Errorf("shouldRedact(%q) = false, want true", key)
		}
	}

	clear := []string{"module", "eventType", "confidence", "watcher"}
	for _, key := range clear {
		if shouldRedact(key) {
			t.Errorf("shouldRedact(%q) = true, want false", key)
		}
	}
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	log := New(nil)
	if log == nil {
		t.Fatal("New(nil) returned nil")
	}
	if !log.Enabled(nil, slog.LevelInfo) {
		t.Error("default level should enable info")
	}
	if log.Enabled(nil, slog.LevelDebug) {
		t.Error("default level should suppress debug")
	}
}
