//go:build !linux

package vmmon

import (
	"net"

	"proctord/internal/engine"
)

// macSource probes what is portably available: interface hardware
// addresses. DMI and driver probes are supplied by the host application
// via NewWithSource.
type macSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return engine.NewRetrySource[Snapshot](macSource{})
}

func (macSource) Poll() (Snapshot, error) {
	var snap Snapshot
	ifaces, err := net.Interfaces()
	if err != nil {
		return snap, err
	}
	for _, iface := range ifaces {
		if addr := iface.HardwareAddr.String(); addr != "" {
			snap.MACs = append(snap.MACs, addr)
		}
	}
	return snap, nil
}
