// Package screenmon watches window and display state for overlay windows
// and screen-capture indicators.
package screenmon

import (
	"fmt"
	"log/slog"
	"sort"

	"proctord/internal/engine"
)

// Domain is the watcher domain identifier.
const Domain = "screen"

// Window is one entry in a window-list snapshot.
type Window struct {
	ID          string
	Title       string
	Owner       string
	Topmost     bool
	Layered     bool
	Transparent bool
}

// Display is one entry in a display-list snapshot.
type Display struct {
	ID      string
	Virtual bool
}

// Snapshot is the window and display state captured at one tick.
type Snapshot struct {
	Windows  []Window
	Displays []Display
}

// Evidence weights for overlay classification.
const (
	weightBlacklist      = 0.6
	weightTopmost        = 0.3
	weightLayered        = 0.25
	weightTransparent    = 0.2
	weightVirtualDisplay = 0.3
)

// Classify maps window/display state to weighted evidence. Each window
// contributes at most once per overlay-style flag.
func Classify(snap Snapshot, cfg *engine.Config) []engine.Evidence {
	var col engine.Collector
	for _, w := range snap.Windows {
		if cfg.InBlacklist(w.Owner) {
			col.Observe(w.ID, "blacklist", weightBlacklist)
		}
		if w.Topmost {
			col.Observe(w.ID, "overlay-topmost", weightTopmost)
		}
		if w.Layered {
			col.Observe(w.ID, "overlay-layered", weightLayered)
		}
		if w.Transparent {
			col.Observe(w.ID, "overlay-transparent", weightTransparent)
		}
	}
	for _, d := range snap.Displays {
		if d.Virtual {
			col.Observe(d.ID, "virtual-display", weightVirtualDisplay)
		}
	}
	return col.Evidence()
}

// Display topology event types.
const (
	EventDisplayAdded   = "display-added"
	EventDisplayRemoved = "display-removed"
)

// Tracker detects overlay edges and display topology changes from
// classified window snapshots.
type Tracker struct {
	edge         engine.Edge
	prevDisplays []string
	seenDisplays bool
}

// Track emits overlay-detected/removed on detected edges, overlay-changed
// when the detected state holds but evidence moved, and one
// display-added/removed per display that appeared or vanished.
func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	detected := engine.Detected(t.Score, t.Config.Thresholds.Overlay)
	var out []engine.Candidate

	var eventType string
	switch tr.edge.Observe(detected, len(t.Evidence)) {
	case engine.EdgeRise:
		eventType = "overlay-detected"
	case engine.EdgeFall:
		eventType = "overlay-removed"
	case engine.EdgeChanged:
		eventType = "overlay-changed"
	}
	if eventType != "" {
		out = append(out, engine.Candidate{
			Type:        eventType,
			Fingerprint: fmt.Sprintf("%s:%d", eventType, len(overlayWindows(t.Snapshot))),
			Confidence:  t.Score,
			Payload:     payload(t, detected),
		})
	}

	out = append(out, tr.trackDisplays(t)...)
	return out
}

// trackDisplays diffs display IDs against the previous tick. The first
// poll establishes the baseline; displays attached at start are not
// events.
func (tr *Tracker) trackDisplays(t engine.Tick[Snapshot]) []engine.Candidate {
	cur := make([]string, 0, len(t.Snapshot.Displays))
	virtual := make(map[string]bool, len(t.Snapshot.Displays))
	for _, d := range t.Snapshot.Displays {
		cur = append(cur, d.ID)
		virtual[d.ID] = d.Virtual
	}

	if !tr.seenDisplays {
		tr.seenDisplays = true
		tr.prevDisplays = cur
		return nil
	}

	added, removed := engine.DiffStrings(tr.prevDisplays, cur)
	tr.prevDisplays = cur

	var out []engine.Candidate
	for _, id := range added {
		out = append(out, engine.Candidate{
			Type:        EventDisplayAdded,
			Fingerprint: EventDisplayAdded + ":" + id,
			Payload: map[string]any{
				"displayId":    id,
				"virtual":      virtual[id],
				"displayCount": len(cur),
			},
		})
	}
	for _, id := range removed {
		out = append(out, engine.Candidate{
			Type:        EventDisplayRemoved,
			Fingerprint: EventDisplayRemoved + ":" + id,
			Payload: map[string]any{
				"displayId":    id,
				"displayCount": len(cur),
			},
		})
	}
	return out
}

// State describes the current overlay watch state.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	detected := engine.Detected(t.Score, t.Config.Thresholds.Overlay)
	return payload(t, detected)
}

func payload(t engine.Tick[Snapshot], detected bool) map[string]any {
	overlays := overlayWindows(t.Snapshot)
	return map[string]any{
		"overlayDetected": detected,
		"overlayWindows":  overlays,
		"windowCount":     len(t.Snapshot.Windows),
		"displayCount":    len(t.Snapshot.Displays),
		"virtualDisplays": virtualDisplayCount(t.Snapshot),
		"evidence":        engine.Tags(t.Evidence),
	}
}

// overlayWindows lists owners of windows with at least one overlay flag.
func overlayWindows(snap Snapshot) []string {
	var owners []string
	seen := make(map[string]bool)
	for _, w := range snap.Windows {
		if !w.Topmost && !w.Layered && !w.Transparent {
			continue
		}
		if seen[w.Owner] {
			continue
		}
		seen[w.Owner] = true
		owners = append(owners, w.Owner)
	}
	sort.Strings(owners)
	return owners
}

func virtualDisplayCount(snap Snapshot) int {
	n := 0
	for _, d := range snap.Displays {
		if d.Virtual {
			n++
		}
	}
	return n
}

// New builds the screen watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the screen watcher with an explicit source.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
