package engine

import (
	"sync"

	"proctord/internal/event"
)

// Sink is the single hand-off point between a watcher's loop goroutine
// and the host callback.
//
// It behaves as a depth-1 mailbox with exactly one consumer: Send blocks
// until the consumer has drained the previous item, TrySend drops instead
// of blocking (used for heartbeats). Per-watcher ordering is preserved;
// at most one callback invocation is in flight at a time.
type Sink struct {
	ch       chan event.Event
	callback func(event.Event)

	mu       sync.Mutex
	released bool
	drained  chan struct{}
}

// NewSink creates a sink delivering events to the callback on a dedicated
// consumer goroutine.
func NewSink(callback func(event.Event)) *Sink {
	s := &Sink{
		ch:       make(chan event.Event, 1),
		callback: callback,
		drained:  make(chan struct{}),
	}
	go s.consume()
	return s
}

func (s *Sink) consume() {
	defer close(s.drained)
	for ev := range s.ch {
		if s.callback != nil {
			s.callback(ev)
		}
	}
}

// Send hands an event to the consumer, blocking until the mailbox has
// room. Used for state-change events that must not be missed.
func (s *Sink) Send(ev event.Event) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.ch <- ev
}

// TrySend hands an event to the consumer without blocking, reporting
// whether it was accepted. Used for heartbeats, which may be dropped
// under backpressure.
func (s *Sink) TrySend(ev event.Event) bool {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Release tears down the sink. It must be called only after the producer
// goroutine has stopped (no in-flight Send); queued events are drained to
// the callback before Release returns. Idempotent.
func (s *Sink) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	close(s.ch)
	<-s.drained
}
