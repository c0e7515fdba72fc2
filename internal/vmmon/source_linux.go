//go:build linux

package vmmon

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"proctord/internal/engine"
)

// dmiSource probes sysfs DMI identity, interface MACs, and the CPU
// hypervisor flag.
type dmiSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return engine.NewRetrySource[Snapshot](dmiSource{})
}

func (dmiSource) Poll() (Snapshot, error) {
	snap := Snapshot{
		Vendors:        dmiStrings(),
		MACs:           interfaceMACs(),
		Devices:        moduleNames(),
		HypervisorFlag: hypervisorFlag(),
	}
	return snap, nil
}

func dmiStrings() []string {
	var out []string
	for _, attr := range []string{"sys_vendor", "product_name", "board_vendor", "bios_vendor"} {
		data, err := os.ReadFile(filepath.Join("/sys/class/dmi/id", attr))
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			out = append(out, s)
		}
	}
	// Cloud guest kernels advertise the hypervisor in the version string
	// ("-kvm", "-azure"); include it alongside the DMI identity.
	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		out = append(out, unix.ByteSliceToString(uts.Release[:]))
	}
	return out
}

func interfaceMACs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var out []string
	for _, iface := range ifaces {
		if addr := iface.HardwareAddr.String(); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// moduleNames lists loaded kernel modules, where paravirtual drivers
// (virtio, vmw_, hv_) show up.
func moduleNames() []string {
	data, err := os.ReadFile("/proc/modules")
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

func hypervisorFlag() bool {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "flags") && strings.Contains(line, " hypervisor") {
			return true
		}
	}
	return false
}
