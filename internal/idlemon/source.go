package idlemon

import "proctord/internal/engine"

// Idle and focus state come from the host application's UI layer, which
// injects a real source via NewWithSource. The stub reports an active,
// focused session.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{Focused: true}, nil
}
