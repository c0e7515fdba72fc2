// Package notifymon watches for system notifications shown while a
// session is active. Notification text is carried under the privacy
// policy, never raw.
package notifymon

import (
	"log/slog"

	"proctord/internal/engine"
	"proctord/internal/privacy"
)

// Domain is the watcher domain identifier.
const Domain = "notification"

// Notification is one visible notification.
type Notification struct {
	// ID is the platform notification identity used for diffing.
	ID string

	// App is the posting application.
	App string

	// Title and Body are raw notification text.
	Title string
	Body  string
}

// Snapshot is the set of visible notifications at one tick.
type Snapshot struct {
	Notifications []Notification
}

// EventShown is emitted once per newly appeared notification.
const EventShown = "notification-shown"

// Classify returns no evidence; notification events are diff-driven.
func Classify(Snapshot, *engine.Config) []engine.Evidence {
	return nil
}

// Tracker diffs notification sets between ticks and emits one shown
// event per new notification. Dismissals are not reported.
type Tracker struct {
	prev    map[string]bool
	seenAny bool
}

func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	cur := make(map[string]bool, len(t.Snapshot.Notifications))
	byID := make(map[string]Notification, len(t.Snapshot.Notifications))
	var curIDs []string
	for _, n := range t.Snapshot.Notifications {
		cur[n.ID] = true
		byID[n.ID] = n
		curIDs = append(curIDs, n.ID)
	}

	var prevIDs []string
	for id := range tr.prev {
		prevIDs = append(prevIDs, id)
	}

	first := !tr.seenAny
	tr.seenAny = true
	tr.prev = cur

	if first {
		return nil
	}

	added, _ := engine.DiffStrings(prevIDs, curIDs)

	var out []engine.Candidate
	for _, id := range added {
		n := byID[id]
		out = append(out, engine.Candidate{
			Type:        EventShown,
			Fingerprint: EventShown + ":" + n.App + ":" + n.ID,
			Payload:     payload(n, t.Config),
		})
	}
	return out
}

// State reports the visible notification count.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	return map[string]any{
		"notificationCount": len(t.Snapshot.Notifications),
	}
}

func payload(n Notification, cfg *engine.Config) map[string]any {
	out := map[string]any{
		"app":         n.App,
		"titleLen":    len(n.Title),
		"bodyLen":     len(n.Body),
		"privacyMode": cfg.Privacy.Mode.String(),
	}
	if cfg.Privacy.Mode != privacy.MetadataOnly {
		title, _ := cfg.Privacy.Preview(n.Title)
		body, sensitive := cfg.Privacy.Preview(n.Body)
		out["title"] = title
		out["body"] = body
		out["sensitive"] = sensitive
	}
	return out
}

// New builds the notification watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the notification watcher with an explicit source.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
