//go:build linux

package devmon

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"proctord/internal/engine"
)

// sysfsSource enumerates USB devices from sysfs and input devices from
// /proc/bus/input/devices.
type sysfsSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return engine.NewRetrySource[Snapshot](sysfsSource{})
}

func (sysfsSource) Poll() (Snapshot, error) {
	var snap Snapshot
	snap.Devices = append(snap.Devices, usbDevices()...)
	snap.Devices = append(snap.Devices, inputDevices()...)
	return snap, nil
}

// usbDevices scans /sys/bus/usb/devices. Interface entries (those with a
// colon in the name) are skipped; only whole devices are reported.
func usbDevices() []Device {
	entries, err := os.ReadDir("/sys/bus/usb/devices")
	if err != nil {
		return nil
	}

	var out []Device
	for _, entry := range entries {
		name := entry.Name()
		if strings.ContainsRune(name, ':') || strings.HasPrefix(name, "usb") {
			continue
		}
		out = append(out, Device{
			ID:   "usb:" + name,
			Name: sysfsAttr(name, "product"),
			Kind: "usb",
		})
	}
	return out
}

func sysfsAttr(device, attr string) string {
	data, err := os.ReadFile(filepath.Join("/sys/bus/usb/devices", device, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// inputDevices parses /proc/bus/input/devices for attached input devices.
func inputDevices() []Device {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Device
	var id, name string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "I:"):
			id, name = strings.TrimSpace(strings.TrimPrefix(line, "I:")), ""
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case line == "" && id != "":
			out = append(out, Device{ID: "input:" + id, Name: name, Kind: "input"})
			id, name = "", ""
		}
	}
	if id != "" {
		out = append(out, Device{ID: "input:" + id, Name: name, Kind: "input"})
	}
	return out
}
