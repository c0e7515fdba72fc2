//go:build !linux

package procmon

import "proctord/internal/engine"

// stubSource is used where no cheap process probe is wired in. The host
// application supplies a real source via NewWithSource.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
