//go:build !linux

package clipmon

import "proctord/internal/engine"

// Clipboard access elsewhere goes through the host application, which
// injects a real source via NewWithSource.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
