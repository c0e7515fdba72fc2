package engine

import (
	"fmt"
	"time"
)

// SignalSource produces best-effort snapshots of current OS state for one
// watcher domain.
//
// Poll must return within bounded time. A non-nil error is non-fatal: the
// engine logs it and treats the tick as having an empty snapshot. Poll is
// only ever called from the watcher's loop goroutine (plus one-shot
// Snapshot calls), so implementations need no internal locking unless they
// share state elsewhere.
type SignalSource[S any] interface {
	Poll() (S, error)
}

// SourceFunc adapts a function to the SignalSource interface.
type SourceFunc[S any] func() (S, error)

// Poll calls the function.
func (f SourceFunc[S]) Poll() (S, error) {
	return f()
}

// RetrySource retries transient poll failures with capped linear backoff.
// The observed platform pattern is 3 attempts with 10ms x attempt delays
// (e.g. "resource busy" clipboard reads).
type RetrySource[S any] struct {
	Source   SignalSource[S]
	Attempts int           // default 3
	Backoff  time.Duration // per-attempt multiplier, default 10ms

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewRetrySource wraps a source with the default retry policy.
func NewRetrySource[S any](src SignalSource[S]) *RetrySource[S] {
	return &RetrySource[S]{Source: src}
}

// Poll attempts the underlying poll, backing off linearly between
// failures. The last error is returned if every attempt fails.
func (r *RetrySource[S]) Poll() (S, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var zero S
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := r.Source.Poll()
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if attempt < attempts {
			sleep(backoff * time.Duration(attempt))
		}
	}
	return zero, fmt.Errorf("poll failed after %d attempts: %w", attempts, lastErr)
}

// safePoll shields the loop from panicking sources. A panic is converted
// to an error and an empty snapshot, never escaping the tick.
func safePoll[S any](src SignalSource[S]) (snap S, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero S
			snap = zero
			err = fmt.Errorf("poll panicked: %v", r)
		}
	}()
	return src.Poll()
}
