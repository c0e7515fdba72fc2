// Package procmon watches the process list for screen-recording and
// blacklisted applications.
package procmon

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"proctord/internal/engine"
)

// Domain is the watcher domain identifier.
const Domain = "process"

// Process is one entry in a process-list snapshot.
type Process struct {
	PID     int
	Name    string
	Modules []string
}

// Snapshot is the process list captured at one tick.
type Snapshot struct {
	Processes []Process
}

// Evidence weights for process classification.
const (
	weightBlacklist  = 0.6
	weightCaptureAPI = 0.8
	weightGraphics   = 0.25
)

// Modules that indicate use of a platform screen-capture API.
var captureModules = map[string]bool{
	"screencapturekit": true,
	"cgdisplaystream":  true,
	"dxgi-capture":     true,
	"graphicscapture":  true,
	"pipewire-screen":  true,
}

// Modules that are weaker graphics-API evidence.
var graphicsModules = map[string]bool{
	"dxgi":   true,
	"d3d11":  true,
	"opengl": true,
	"metal":  true,
	"vulkan": true,
}

// Classify maps a process snapshot to weighted evidence. Each process
// contributes at most once per tag.
func Classify(snap Snapshot, cfg *engine.Config) []engine.Evidence {
	var col engine.Collector
	for _, p := range snap.Processes {
		element := fmt.Sprintf("%d", p.PID)
		if cfg.InBlacklist(p.Name) {
			col.Observe(element, "blacklist", weightBlacklist)
		}
		for _, m := range p.Modules {
			name := strings.ToLower(m)
			if captureModules[name] {
				col.Observe(element, "module-capture-api", weightCaptureAPI)
			}
			if graphicsModules[name] {
				col.Observe(element, "module-"+name, weightGraphics)
			}
		}
	}
	return col.Evidence()
}

// Tracker detects recording edges from classified process snapshots.
type Tracker struct {
	edge engine.Edge
}

// Track emits recording-started/stopped on detected edges, and
// recording-changed when the detected state holds but the evidence count
// moved.
func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	detected := engine.Detected(t.Score, t.Config.Thresholds.Recording)

	var eventType string
	switch tr.edge.Observe(detected, len(t.Evidence)) {
	case engine.EdgeRise:
		eventType = "recording-started"
	case engine.EdgeFall:
		eventType = "recording-stopped"
	case engine.EdgeChanged:
		eventType = "recording-changed"
	default:
		return nil
	}

	return []engine.Candidate{{
		Type:        eventType,
		Fingerprint: fingerprint(eventType, t),
		Confidence:  t.Score,
		Payload:     payload(t, detected),
	}}
}

// State describes the current recording watch state. Pure with respect to
// tracker memory, so one-shot snapshots can call it concurrently.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	detected := engine.Detected(t.Score, t.Config.Thresholds.Recording)
	return payload(t, detected)
}

func payload(t engine.Tick[Snapshot], detected bool) map[string]any {
	return map[string]any{
		"isRecording":  detected,
		"processCount": len(t.Snapshot.Processes),
		"evidence":     engine.Tags(t.Evidence),
		"matches":      matchNames(t),
	}
}

// matchNames lists blacklisted process names present in the snapshot.
func matchNames(t engine.Tick[Snapshot]) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range t.Snapshot.Processes {
		if t.Config.InBlacklist(p.Name) && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

func fingerprint(eventType string, t engine.Tick[Snapshot]) string {
	return eventType + ":" + strings.Join(matchNames(t), ",")
}

// New builds the process watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the process watcher with an explicit source,
// used in tests.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
