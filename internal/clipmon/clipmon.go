// Package clipmon watches the clipboard for content changes. Payload
// content is governed by the configured privacy policy; fingerprints are
// content hashes so raw text never enters the dedup cache.
package clipmon

import (
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"proctord/internal/engine"
	"proctord/internal/privacy"
)

// Domain is the watcher domain identifier.
const Domain = "clipboard"

// Snapshot is the clipboard state captured at one tick.
type Snapshot struct {
	// Content is the raw clipboard text. It never leaves the watcher
	// unredacted; see Tracker.
	Content string

	// Format is the platform content format ("text", "image", "files").
	Format string

	// SourceApp is the application that owns the clipboard content, when
	// the platform exposes it. Empty on portable probes.
	SourceApp string

	// Present reports whether the clipboard held readable content.
	Present bool
}

// EventChanged is emitted when the clipboard content hash moves.
const EventChanged = "clipboard-changed"

// Fingerprint returns the short hex content hash used for change
// detection and deduplication.
func Fingerprint(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}

// Classify reports sensitive-content evidence. Clipboard detection is not
// threshold-driven; the evidence only annotates payloads.
func Classify(snap Snapshot, cfg *engine.Config) []engine.Evidence {
	var col engine.Collector
	if snap.Present && snap.Content != "" {
		if _, sensitive := cfg.Privacy.Preview(snap.Content); sensitive {
			col.Observe("clipboard", "sensitive-content", 0)
		}
	}
	return col.Evidence()
}

// Tracker emits clipboard-changed whenever the content hash moves.
type Tracker struct {
	lastHash string
	seenAny  bool
}

func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	if !t.Snapshot.Present {
		return nil
	}

	hash := Fingerprint(t.Snapshot.Content)
	if tr.seenAny && hash == tr.lastHash {
		return nil
	}
	first := !tr.seenAny
	tr.seenAny = true
	tr.lastHash = hash

	// The first poll after start establishes the baseline; whatever was
	// already on the clipboard is not a change.
	if first {
		return nil
	}

	return []engine.Candidate{{
		Type:        EventChanged,
		Fingerprint: EventChanged + ":" + hash,
		Payload:     payload(t.Snapshot, t.Config),
	}}
}

// State describes the current clipboard content under the privacy policy.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	if !t.Snapshot.Present {
		return map[string]any{"present": false}
	}
	out := payload(t.Snapshot, t.Config)
	out["present"] = true
	return out
}

func payload(snap Snapshot, cfg *engine.Config) map[string]any {
	preview, sensitive := cfg.Privacy.Preview(snap.Content)
	out := map[string]any{
		"contentHash":   Fingerprint(snap.Content),
		"contentLength": len(snap.Content),
		"format":        snap.Format,
		"sensitive":     sensitive,
		"privacyMode":   cfg.Privacy.Mode.String(),
	}
	if snap.SourceApp != "" {
		out["sourceApp"] = snap.SourceApp
	}
	if cfg.Privacy.Mode != privacy.MetadataOnly {
		out["contentPreview"] = preview
	}
	return out
}

// New builds the clipboard watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the clipboard watcher with an explicit source.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
