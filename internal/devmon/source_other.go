//go:build !linux

package devmon

import "proctord/internal/engine"

// Device enumeration elsewhere is supplied by the host application via
// NewWithSource.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
