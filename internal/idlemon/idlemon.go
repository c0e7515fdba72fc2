// Package idlemon watches user presence: input idleness, application
// focus, and window minimization.
package idlemon

import (
	"log/slog"
	"time"

	"proctord/internal/engine"
)

// Domain is the watcher domain identifier.
const Domain = "idle"

// IdleThreshold is how long input must be absent before the user counts
// as idle.
const IdleThreshold = 30 * time.Second

// Snapshot is the presence state captured at one tick.
type Snapshot struct {
	// IdleFor is the time since the last input event.
	IdleFor time.Duration

	// Focused reports whether the monitored application holds focus.
	Focused bool

	// FocusedApp is the identifier of the frontmost application.
	FocusedApp string

	// Minimized reports whether the monitored window is minimized.
	Minimized bool
}

// Event types, in rule-chain priority order.
const (
	EventIdleStart   = "idle-start"
	EventIdleEnd     = "idle-end"
	EventFocusLost   = "focus-lost"
	EventFocusGained = "focus-gained"
	EventMinimized   = "window-minimized"
	EventRestored    = "window-restored"
)

// Classify returns no evidence; presence events are transition-driven,
// not confidence-scored.
func Classify(Snapshot, *engine.Config) []engine.Evidence {
	return nil
}

type presence struct {
	idle      bool
	focused   bool
	minimized bool
}

// Tracker emits presence transitions through a fixed-priority rule
// chain. At most one event fires per tick; when two transitions land on
// the same tick the higher-priority one wins and the other fires on a
// later edge.
type Tracker struct {
	prev    presence
	seenAny bool
}

func derive(snap Snapshot) presence {
	return presence{
		idle:      snap.IdleFor >= IdleThreshold,
		focused:   snap.Focused,
		minimized: snap.Minimized,
	}
}

func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	cur := derive(t.Snapshot)
	prev := tr.prev
	first := !tr.seenAny
	tr.seenAny = true
	tr.prev = cur

	if first {
		return nil
	}

	rules := []engine.Rule[Snapshot]{
		{Type: EventIdleStart, When: func(engine.Tick[Snapshot]) bool { return cur.idle && !prev.idle }},
		{Type: EventIdleEnd, When: func(engine.Tick[Snapshot]) bool { return !cur.idle && prev.idle }},
		{Type: EventFocusLost, When: func(engine.Tick[Snapshot]) bool { return !cur.focused && prev.focused }},
		{Type: EventFocusGained, When: func(engine.Tick[Snapshot]) bool { return cur.focused && !prev.focused }},
		{Type: EventMinimized, When: func(engine.Tick[Snapshot]) bool { return cur.minimized && !prev.minimized }},
		{Type: EventRestored, When: func(engine.Tick[Snapshot]) bool { return !cur.minimized && prev.minimized }},
	}

	c, ok := engine.FirstMatch(t, rules)
	if !ok {
		return nil
	}
	c.Fingerprint = c.Type + ":" + t.Snapshot.FocusedApp
	c.Payload = payload(t.Snapshot, cur)
	return []engine.Candidate{c}
}

// State describes the current presence state.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	return payload(t.Snapshot, derive(t.Snapshot))
}

func payload(snap Snapshot, p presence) map[string]any {
	return map[string]any{
		"idle":        p.idle,
		"idleForMs":   snap.IdleFor.Milliseconds(),
		"focused":     p.focused,
		"focusedApp":  snap.FocusedApp,
		"minimized":   p.minimized,
		"idleLimitMs": IdleThreshold.Milliseconds(),
	}
}

// New builds the idle watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the idle watcher with an explicit source.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
