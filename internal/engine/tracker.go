package engine

import "time"

// Tick carries everything a tracker needs for one loop iteration.
type Tick[S any] struct {
	Snapshot S
	Evidence []Evidence
	Score    float64
	Config   *Config
	Now      time.Time
}

// Candidate is an event proposed by a tracker, before deduplication.
type Candidate struct {
	// Type is the event type (e.g. "recording-started").
	Type string

	// Fingerprint identifies "the same event" for dedup purposes. An
	// empty fingerprint means the candidate is admitted without a
	// per-fingerprint window (the global floor still applies).
	Fingerprint string

	// Confidence carried on the emitted event.
	Confidence float64

	// Payload holds the domain-specific fields.
	Payload map[string]any
}

// Tracker turns a classified tick into candidate events by comparing
// against the previous tick's state.
//
// Trackers are owned by the watcher's loop goroutine and need no locking.
// Single-event domains return at most one candidate per tick; set-diff
// domains (connected devices) may return one candidate per changed item.
type Tracker[S any] interface {
	// Track compares current state to the previous tick and returns
	// candidate events. It must fully recompute state from the tick,
	// never partially mutate a previous one.
	Track(t Tick[S]) []Candidate

	// State describes the current watch state as payload fields. It is
	// used for heartbeat events and one-shot snapshots and must not
	// advance the tracker's previous-state memory.
	State(t Tick[S]) map[string]any
}

// Rule is one entry in a fixed-priority rule chain.
type Rule[S any] struct {
	Type string
	When func(t Tick[S]) bool
	// Candidate builds the candidate once the rule matches. May be nil,
	// in which case a bare candidate with the rule's type is produced.
	Candidate func(t Tick[S]) Candidate
}

// FirstMatch evaluates rules in order and returns the candidate of the
// first rule whose condition holds. Only the first match fires; other
// true conditions in the same tick are deferred until their own edge
// re-triggers. This matches the original watcher behavior and can mask
// simultaneous transitions.
func FirstMatch[S any](t Tick[S], rules []Rule[S]) (Candidate, bool) {
	for _, r := range rules {
		if r.When == nil || !r.When(t) {
			continue
		}
		if r.Candidate != nil {
			return r.Candidate(t), true
		}
		return Candidate{Type: r.Type, Confidence: t.Score}, true
	}
	return Candidate{}, false
}

// DiffStrings compares two string sets and returns the items newly
// appeared in cur and the items removed since prev, each in cur/prev
// iteration-independent sorted-input order.
func DiffStrings(prev, cur []string) (added, removed []string) {
	prevSet := make(map[string]bool, len(prev))
	for _, p := range prev {
		prevSet[p] = true
	}
	curSet := make(map[string]bool, len(cur))
	for _, c := range cur {
		curSet[c] = true
	}

	for _, c := range cur {
		if !prevSet[c] {
			added = append(added, c)
		}
	}
	for _, p := range prev {
		if !curSet[p] {
			removed = append(removed, p)
		}
	}
	return added, removed
}

// EdgeKind classifies a detected-state transition.
type EdgeKind int

const (
	// EdgeNone means no transition worth emitting.
	EdgeNone EdgeKind = iota
	// EdgeRise means detected went false -> true.
	EdgeRise
	// EdgeFall means detected went true -> false.
	EdgeFall
	// EdgeChanged means detected stayed true but the evidence count
	// changed; still worth emitting as a transition.
	EdgeChanged
)

// Edge tracks boolean-detected transitions for confidence-based domains
// (recording, overlay, screen sharing).
type Edge struct {
	prevDetected bool
	prevCount    int
	initialized  bool
}

// Observe records the current tick and returns the transition kind.
// The first observation establishes a baseline: a detected first tick is
// reported as a rise, an undetected one as no edge.
func (e *Edge) Observe(detected bool, evidenceCount int) EdgeKind {
	defer func() {
		e.prevDetected = detected
		e.prevCount = evidenceCount
		e.initialized = true
	}()

	if !e.initialized {
		if detected {
			return EdgeRise
		}
		return EdgeNone
	}

	switch {
	case detected && !e.prevDetected:
		return EdgeRise
	case !detected && e.prevDetected:
		return EdgeFall
	case detected && evidenceCount != e.prevCount:
		return EdgeChanged
	default:
		return EdgeNone
	}
}

// Detected returns the last observed detected state.
func (e *Edge) Detected() bool {
	return e.prevDetected
}
