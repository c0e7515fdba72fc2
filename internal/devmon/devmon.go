// Package devmon watches peripheral attach/detach activity. The same
// set-diff tracker backs the generic device watcher and the bluetooth
// watcher; they differ only in signal source and domain name.
package devmon

import (
	"log/slog"
	"sort"
	"strings"

	"proctord/internal/engine"
)

// Watcher domain identifiers.
const (
	Domain          = "device"
	BluetoothDomain = "bluetooth"
)

// Device is one attached peripheral.
type Device struct {
	// ID is the stable identity used for set-diffing (bus path, MAC).
	ID string

	// Name is the human-readable product name, may be empty.
	Name string

	// Kind classifies the device ("usb", "input", "bluetooth").
	Kind string
}

// Snapshot is the set of attached devices at one tick.
type Snapshot struct {
	Devices []Device
}

// Event types.
const (
	EventConnected    = "device-connected"
	EventDisconnected = "device-disconnected"
)

// Virtual-device name fragments that earn corroborating evidence. These
// are presentation tools commonly used to inject input or video.
var virtualMarkers = []string{
	"virtual",
	"vmware",
	"virtualbox",
	"obs-camera",
	"droidcam",
	"ndi",
}

// Evidence weights for device classification.
const (
	weightVirtualDevice = 0.3
	weightBlacklist     = 0.6
)

// Classify adds corroborating evidence for virtual or emulated devices.
// Device events themselves are diff-driven; the evidence only raises the
// confidence carried on them.
func Classify(snap Snapshot, cfg *engine.Config) []engine.Evidence {
	var col engine.Collector
	for _, d := range snap.Devices {
		name := strings.ToLower(d.Name)
		for _, marker := range virtualMarkers {
			if strings.Contains(name, marker) {
				col.Observe(d.ID, "virtual-device", weightVirtualDevice)
				break
			}
		}
		if cfg.InBlacklist(d.Name) {
			col.Observe(d.ID, "blacklist", weightBlacklist)
		}
	}
	return col.Evidence()
}

// Tracker diffs device sets between ticks. One tick can yield several
// events when multiple devices change at once.
type Tracker struct {
	prev    map[string]Device
	seenAny bool
}

func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	cur := make(map[string]Device, len(t.Snapshot.Devices))
	var curIDs []string
	for _, d := range t.Snapshot.Devices {
		cur[d.ID] = d
		curIDs = append(curIDs, d.ID)
	}

	var prevIDs []string
	for id := range tr.prev {
		prevIDs = append(prevIDs, id)
	}

	first := !tr.seenAny
	tr.seenAny = true
	prev := tr.prev
	tr.prev = cur

	// The first poll establishes the baseline set; devices already
	// attached at start are not connection events.
	if first {
		return nil
	}

	added, removed := engine.DiffStrings(prevIDs, curIDs)

	var out []engine.Candidate
	for _, id := range added {
		out = append(out, candidate(EventConnected, cur[id], t))
	}
	for _, id := range removed {
		out = append(out, candidate(EventDisconnected, prev[id], t))
	}
	return out
}

func candidate(eventType string, d Device, t engine.Tick[Snapshot]) engine.Candidate {
	return engine.Candidate{
		Type:        eventType,
		Fingerprint: eventType + ":" + d.ID,
		Confidence:  t.Score,
		Payload: map[string]any{
			"deviceId":    d.ID,
			"deviceName":  d.Name,
			"deviceKind":  d.Kind,
			"deviceCount": len(t.Snapshot.Devices),
			"evidence":    engine.Tags(t.Evidence),
		},
	}
}

// State lists the currently attached devices.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	names := make([]string, 0, len(t.Snapshot.Devices))
	for _, d := range t.Snapshot.Devices {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return map[string]any{
		"deviceCount": len(t.Snapshot.Devices),
		"devices":     names,
		"evidence":    engine.Tags(t.Evidence),
	}
}

// New builds the generic device watcher around the platform source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(Domain, newPlatformSource(), log)
}

// NewBluetooth builds the bluetooth watcher around the platform adapter
// probe.
func NewBluetooth(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(BluetoothDomain, newBluetoothSource(), log)
}

// NewWithSource builds a device-diff watcher for the given domain with an
// explicit source.
func NewWithSource(domain string, src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
