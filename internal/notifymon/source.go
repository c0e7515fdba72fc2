package notifymon

import "proctord/internal/engine"

// Notification feeds come from the host application's platform layer,
// injected via NewWithSource. The stub reports no notifications.
type stubSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return stubSource{}
}

func (stubSource) Poll() (Snapshot, error) {
	return Snapshot{}, nil
}
