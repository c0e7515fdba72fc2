package screenmon

import "proctord/internal/engine"

// Window enumeration requires a platform UI binding the daemon does not
// carry; the host application injects a real source via NewWithSource.
// The stub keeps the watcher runnable with heartbeat-only output.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
