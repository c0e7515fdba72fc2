package engine

import (
	"sync"
	"testing"
	"time"

	"proctord/internal/event"
)

// procList is a minimal snapshot type for engine tests: a list of
// process names.
type procList []string

func testClassify(snap procList, cfg *Config) []Evidence {
	var col Collector
	for _, name := range snap {
		if cfg.InBlacklist(name) {
			col.Observe(name, "blacklist", 0.6)
		}
	}
	return col.Evidence()
}

// edgeTracker emits detected/cleared on threshold edges.
type edgeTracker struct {
	edge Edge
}

func (tr *edgeTracker) Track(t Tick[procList]) []Candidate {
	detected := Detected(t.Score, t.Config.Thresholds.Recording)
	switch tr.edge.Observe(detected, len(t.Evidence)) {
	case EdgeRise:
		return []Candidate{{Type: "detected", Fingerprint: "detected", Confidence: t.Score}}
	case EdgeFall:
		return []Candidate{{Type: "cleared", Fingerprint: "cleared", Confidence: t.Score}}
	default:
		return nil
	}
}

func (tr *edgeTracker) State(t Tick[procList]) map[string]any {
	return map[string]any{"processCount": len(t.Snapshot)}
}

// eventRecorder collects sink output for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *eventRecorder) callback(ev event.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *eventRecorder) ofType(eventType string) []event.Event {
	var out []event.Event
	for _, ev := range r.all() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) waitFor(t *testing.T, eventType string, timeout time.Duration) event.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if evs := r.ofType(eventType); len(evs) > 0 {
			return evs[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q event within %v", eventType, timeout)
	return event.Event{}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.MinEventInterval = 20 * time.Millisecond
	return cfg
}

// mutableSource swaps snapshots under a lock, simulating OS state changes.
type mutableSource struct {
	mu   sync.Mutex
	snap procList
}

func (s *mutableSource) Poll() (procList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(procList(nil), s.snap...), nil
}

func (s *mutableSource) set(snap procList) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func newTestWatcher(src SignalSource[procList]) *Watcher[procList] {
	return NewWatcher[procList]("test", src,
		ClassifierFunc[procList](testClassify), &edgeTracker{}, nil)
}

func TestWatcherDoubleStartReturnsFalse(t *testing.T) {
	w := newTestWatcher(&mutableSource{})
	rec := &eventRecorder{}
	sink := NewSink(rec.callback)

	if !w.Start(sink, testConfig()) {
		t.Fatal("first Start should succeed")
	}
	defer w.Stop()

	if w.Start(NewSink(nil), testConfig()) {
		t.Error("second Start on a running watcher should return false")
	}
	if !w.IsRunning() {
		t.Error("watcher should still be running")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w := newTestWatcher(&mutableSource{})
	w.Start(NewSink(nil), testConfig())

	w.Stop()
	if w.IsRunning() {
		t.Error("watcher should be stopped")
	}
	w.Stop() // second Stop must not panic or hang
}

func TestWatcherInvalidConfigRejected(t *testing.T) {
	w := newTestWatcher(&mutableSource{})
	cfg := testConfig()
	cfg.PollInterval = -1

	if w.Start(NewSink(nil), cfg) {
		t.Error("Start should reject an invalid config")
	}
	if w.IsRunning() {
		t.Error("nothing should be left running after a rejected Start")
	}
}

func TestWatcherEmitsOnRisingEdge(t *testing.T) {
	src := &mutableSource{}
	w := newTestWatcher(src)
	rec := &eventRecorder{}

	cfg := testConfig()
	cfg.Blacklist = []string{"obs", "screenrec"}
	if !w.Start(NewSink(rec.callback), cfg) {
		t.Fatal("Start failed")
	}
	defer w.Stop()

	// Two blacklisted processes push the score to 1.0, over the 0.75
	// threshold.
	src.set(procList{"obs", "screenrec", "editor"})
	ev := rec.waitFor(t, "detected", time.Second)

	if ev.Module != "test" {
		t.Errorf("module = %q, want test", ev.Module)
	}
	if ev.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", ev.Confidence)
	}

	src.set(procList{"editor"})
	rec.waitFor(t, "cleared", time.Second)
}

func TestWatcherBlacklistAloneStaysBelowThreshold(t *testing.T) {
	// One blacklist match is 0.6 evidence, below the 0.75 recording
	// threshold: no detection, heartbeats still flow.
	src := &mutableSource{snap: procList{"chrome.exe"}}
	w := newTestWatcher(src)
	rec := &eventRecorder{}

	cfg := testConfig()
	cfg.Blacklist = []string{"chrome.exe"}
	if !w.Start(NewSink(rec.callback), cfg) {
		t.Fatal("Start failed")
	}
	defer w.Stop()

	hb := rec.waitFor(t, event.TypeHeartbeat, time.Second)
	if hb.Confidence != 0.6 {
		t.Errorf("heartbeat confidence = %v, want 0.6", hb.Confidence)
	}
	if got := rec.ofType("detected"); len(got) != 0 {
		t.Errorf("got %d detected events below threshold", len(got))
	}
}

func TestWatcherHeartbeatCadence(t *testing.T) {
	w := newTestWatcher(&mutableSource{})
	rec := &eventRecorder{}

	if !w.Start(NewSink(rec.callback), testConfig()) {
		t.Fatal("Start failed")
	}
	defer w.Stop()

	rec.waitFor(t, event.TypeHeartbeat, time.Second)

	stats := w.Stats()
	if stats.Heartbeats == 0 {
		t.Error("heartbeat counter should have advanced")
	}
}

func TestWatcherSequenceMonotonicAcrossRestart(t *testing.T) {
	src := &mutableSource{}
	w := newTestWatcher(src)
	rec := &eventRecorder{}

	cfg := testConfig()
	cfg.Blacklist = []string{"obs", "screenrec"}
	w.Start(NewSink(rec.callback), cfg)
	src.set(procList{"obs", "screenrec"})
	first := rec.waitFor(t, "detected", time.Second)
	w.Stop()

	// The tracker keeps its edge memory, so dropping the processes after
	// the restart produces a falling edge with a later sequence number.
	src.set(nil)
	rec2 := &eventRecorder{}
	w.Start(NewSink(rec2.callback), cfg)
	defer w.Stop()
	second := rec2.waitFor(t, "cleared", time.Second)

	if second.Sequence <= first.Sequence {
		t.Errorf("sequence reset across restart: first=%d second=%d",
			first.Sequence, second.Sequence)
	}
}

func TestWatcherSnapshotWithoutStart(t *testing.T) {
	src := &mutableSource{snap: procList{"obs", "screenrec"}}
	w := newTestWatcher(src)

	cfg := testConfig()
	cfg.Blacklist = []string{"obs", "screenrec"}
	if err := w.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	ev, err := w.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if ev.Type != event.TypeSnapshot {
		t.Errorf("type = %q, want %q", ev.Type, event.TypeSnapshot)
	}
	if ev.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", ev.Confidence)
	}
	if got := ev.Payload["processCount"]; got != 2 {
		t.Errorf("processCount = %v, want 2", got)
	}
}

func TestWatcherSetBlacklistKeepsOtherFields(t *testing.T) {
	w := newTestWatcher(&mutableSource{})
	cfg := testConfig()
	cfg.Thresholds.Recording = 0.9
	if err := w.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	w.SetBlacklist([]string{"newproc"})

	got := w.Config()
	if got.Thresholds.Recording != 0.9 {
		t.Errorf("threshold lost on SetBlacklist: %v", got.Thresholds.Recording)
	}
	if !got.InBlacklist("newproc") {
		t.Error("blacklist not applied")
	}
}

func TestWatcherDedupSuppressesRepeatedEvents(t *testing.T) {
	// Tracker that proposes the same candidate every tick.
	repeat := trackerFuncs{
		track: func(t Tick[procList]) []Candidate {
			return []Candidate{{Type: "noisy", Fingerprint: "noisy:same"}}
		},
		state: func(Tick[procList]) map[string]any { return nil },
	}
	w := NewWatcher[procList]("test", &mutableSource{},
		ClassifierFunc[procList](testClassify), repeat, nil)
	rec := &eventRecorder{}

	cfg := testConfig()
	cfg.MinEventInterval = time.Hour
	if !w.Start(NewSink(rec.callback), cfg) {
		t.Fatal("Start failed")
	}

	rec.waitFor(t, "noisy", time.Second)
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	if got := rec.ofType("noisy"); len(got) != 1 {
		t.Errorf("emitted %d noisy events, dedup should allow 1", len(got))
	}
	if w.Stats().Suppressed == 0 {
		t.Error("suppressed counter should have advanced")
	}
}

func TestWatcherEmitsEverySetDiffCandidateInOneTick(t *testing.T) {
	// Set-diff tracker over process names: one candidate per appeared
	// name, several per tick when the set grows by more than one.
	var prev []string
	seeded := false
	diff := trackerFuncs{
		track: func(tk Tick[procList]) []Candidate {
			added, _ := DiffStrings(prev, tk.Snapshot)
			prev = append([]string(nil), tk.Snapshot...)
			if !seeded {
				seeded = true
				return nil
			}
			var out []Candidate
			for _, name := range added {
				out = append(out, Candidate{
					Type:        "proc-started",
					Fingerprint: "proc-started:" + name,
					Payload:     map[string]any{"name": name},
				})
			}
			return out
		},
		state: func(Tick[procList]) map[string]any { return nil },
	}

	src := &mutableSource{snap: procList{"a"}}
	w := NewWatcher[procList]("test", src,
		ClassifierFunc[procList](testClassify), diff, nil)
	rec := &eventRecorder{}

	if !w.Start(NewSink(rec.callback), testConfig()) {
		t.Fatal("Start failed")
	}
	defer w.Stop()

	// Let the baseline tick land before growing the set.
	time.Sleep(50 * time.Millisecond)
	src.set(procList{"a", "b", "c"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(rec.ofType("proc-started")) < 2 {
		time.Sleep(5 * time.Millisecond)
	}

	got := rec.ofType("proc-started")
	if len(got) != 2 {
		t.Fatalf("emitted %d proc-started events, want one per appeared name", len(got))
	}
	names := map[any]bool{}
	for _, ev := range got {
		names[ev.Payload["name"]] = true
	}
	if !names["b"] || !names["c"] {
		t.Errorf("events cover %v, want b and c", names)
	}
}

func TestWatcherHeartbeatDoesNotSuppressNextEdge(t *testing.T) {
	src := &mutableSource{}
	w := newTestWatcher(src)
	rec := &eventRecorder{}

	cfg := testConfig()
	cfg.Blacklist = []string{"obs", "screenrec"}
	cfg.HeartbeatInterval = 30 * time.Millisecond
	if !w.Start(NewSink(rec.callback), cfg) {
		t.Fatal("Start failed")
	}
	defer w.Stop()

	// Raise the edge right after a heartbeat; the very next tick must
	// still deliver it.
	rec.waitFor(t, event.TypeHeartbeat, time.Second)
	src.set(procList{"obs", "screenrec"})
	rec.waitFor(t, "detected", time.Second)
}

// trackerFuncs adapts bare functions to the Tracker interface.
type trackerFuncs struct {
	track func(Tick[procList]) []Candidate
	state func(Tick[procList]) map[string]any
}

func (tf trackerFuncs) Track(t Tick[procList]) []Candidate    { return tf.track(t) }
func (tf trackerFuncs) State(t Tick[procList]) map[string]any { return tf.state(t) }
