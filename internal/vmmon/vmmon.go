// Package vmmon watches for signs that the session runs inside a virtual
// machine. Each indicator is weak on its own; detection requires at
// least two corroborating signals.
package vmmon

import (
	"log/slog"
	"sort"
	"strings"

	"proctord/internal/engine"
)

// Domain is the watcher domain identifier.
const Domain = "vm"

// DetectThreshold is the confidence cutoff for the detected state. With
// each indicator weighing 0.3, one signal alone never crosses it.
const DetectThreshold = 0.5

const weightIndicator = 0.3

// Snapshot carries the hardware identity strings probed at one tick.
type Snapshot struct {
	// Vendors holds DMI vendor and product strings.
	Vendors []string

	// MACs holds network interface hardware addresses.
	MACs []string

	// Devices holds device and driver names that may be virtual.
	Devices []string

	// HypervisorFlag reports the CPU hypervisor bit.
	HypervisorFlag bool
}

// Event types.
const (
	EventDetected = "vm-detected"
	EventRemoved  = "vm-removed"
	EventChanged  = "vm-changed"
)

// Hypervisor vendor fragments matched against DMI strings.
var vendorMarkers = []string{
	"vmware",
	"virtualbox",
	"qemu",
	"kvm",
	"xen",
	"parallels",
	"microsoft corporation", // Hyper-V virtual machines
	"bochs",
}

// MAC OUI prefixes assigned to hypervisor vendors.
var macPrefixes = []string{
	"00:05:69", "00:0c:29", "00:1c:14", "00:50:56", // VMware
	"08:00:27", // VirtualBox
	"52:54:00", // QEMU/KVM
	"00:16:3e", // Xen
	"00:1c:42", // Parallels
	"00:15:5d", // Hyper-V
}

// Virtual device/driver name fragments.
var deviceMarkers = []string{
	"virtio",
	"vbox",
	"vmxnet",
	"vmw_",
	"hv_",
	"xen_",
}

// Classify maps hardware identity to weighted indicators. Each indicator
// class counts once no matter how many strings match it.
func Classify(snap Snapshot, cfg *engine.Config) []engine.Evidence {
	var col engine.Collector
	for _, v := range snap.Vendors {
		lower := strings.ToLower(v)
		for _, marker := range vendorMarkers {
			if strings.Contains(lower, marker) {
				col.Observe("dmi", "vm-vendor", weightIndicator)
			}
		}
	}
	for _, mac := range snap.MACs {
		lower := strings.ToLower(mac)
		for _, prefix := range macPrefixes {
			if strings.HasPrefix(lower, prefix) {
				col.Observe("net", "vm-mac-prefix", weightIndicator)
			}
		}
	}
	for _, d := range snap.Devices {
		lower := strings.ToLower(d)
		for _, marker := range deviceMarkers {
			if strings.Contains(lower, marker) {
				col.Observe("dev", "vm-device", weightIndicator)
			}
		}
	}
	if snap.HypervisorFlag {
		col.Observe("cpu", "hypervisor-flag", weightIndicator)
	}
	return col.Evidence()
}

// Tracker detects virtualization edges. The state is effectively static
// for a machine's lifetime, so in practice it emits at most once per run.
type Tracker struct {
	edge engine.Edge
}

func (tr *Tracker) Track(t engine.Tick[Snapshot]) []engine.Candidate {
	detected := engine.Detected(t.Score, DetectThreshold)

	var eventType string
	switch tr.edge.Observe(detected, len(t.Evidence)) {
	case engine.EdgeRise:
		eventType = EventDetected
	case engine.EdgeFall:
		eventType = EventRemoved
	case engine.EdgeChanged:
		eventType = EventChanged
	default:
		return nil
	}

	return []engine.Candidate{{
		Type:        eventType,
		Fingerprint: eventType + ":" + strings.Join(engine.Tags(t.Evidence), ","),
		Confidence:  t.Score,
		Payload:     payload(t, detected),
	}}
}

// State describes the current virtualization assessment.
func (tr *Tracker) State(t engine.Tick[Snapshot]) map[string]any {
	detected := engine.Detected(t.Score, DetectThreshold)
	return payload(t, detected)
}

func payload(t engine.Tick[Snapshot], detected bool) map[string]any {
	vendors := append([]string(nil), t.Snapshot.Vendors...)
	sort.Strings(vendors)
	return map[string]any{
		"virtualized":    detected,
		"indicators":     engine.Tags(t.Evidence),
		"vendors":        vendors,
		"hypervisorFlag": t.Snapshot.HypervisorFlag,
	}
}

// New builds the vm watcher around the platform signal source.
func New(log *slog.Logger) *engine.Watcher[Snapshot] {
	return NewWithSource(newPlatformSource(), log)
}

// NewWithSource builds the vm watcher with an explicit source.
func NewWithSource(src engine.SignalSource[Snapshot], log *slog.Logger) *engine.Watcher[Snapshot] {
	return engine.NewWatcher(Domain, src,
		engine.ClassifierFunc[Snapshot](Classify), &Tracker{}, log)
}
