//go:build !linux

package devmon

import "proctord/internal/engine"

// Bluetooth enumeration elsewhere is supplied by the host application
// via NewWithSource.
type stubBluetoothSource struct{}

func newBluetoothSource() engine.SignalSource[Snapshot] {
	return stubBluetoothSource{}
}

func (stubBluetoothSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
