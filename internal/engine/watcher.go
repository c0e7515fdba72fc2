package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"proctord/internal/event"
)

// Handle is the domain-independent surface of a running watcher, used by
// the registry and control tooling.
type Handle interface {
	Domain() string
	Start(sink *Sink, cfg *Config) bool
	Stop()
	IsRunning() bool
	Snapshot() (event.Event, error)
	SetConfig(cfg *Config) error
	SetBlacklist(list []string)
	Stats() Stats
}

// Stats exposes loop counters for metrics exposition.
type Stats struct {
	Emitted    int64
	Suppressed int64
	Heartbeats int64
	PollErrors int64
	CacheSize  int64
}

// Watcher binds the generic engine to one domain's strategies. Exactly
// one background goroutine runs the poll loop between Start and Stop.
type Watcher[S any] struct {
	domain     string
	source     SignalSource[S]
	classifier Classifier[S]
	tracker    Tracker[S]
	log        *slog.Logger

	cfg     atomic.Pointer[Config]
	running atomic.Bool

	// seq is monotonic for the lifetime of the watcher instance and
	// never resets across Start/Stop cycles.
	seq atomic.Int64

	emitted    atomic.Int64
	suppressed atomic.Int64
	heartbeats atomic.Int64
	pollErrors atomic.Int64
	cacheSize  atomic.Int64

	mu     sync.Mutex // guards stop/done across Start/Stop
	stopCh chan struct{}
	done   chan struct{}
	sink   *Sink
}

// Classifier converts a snapshot into weighted evidence under the current
// configuration. Implementations must not retain the snapshot.
type Classifier[S any] interface {
	Classify(snap S, cfg *Config) []Evidence
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc[S any] func(snap S, cfg *Config) []Evidence

// Classify calls the function.
func (f ClassifierFunc[S]) Classify(snap S, cfg *Config) []Evidence {
	return f(snap, cfg)
}

// NewWatcher creates a watcher for one domain. The strategies are owned
// by the watcher from this point on.
func NewWatcher[S any](domain string, source SignalSource[S], classifier Classifier[S], tracker Tracker[S], log *slog.Logger) *Watcher[S] {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher[S]{
		domain:     domain,
		source:     source,
		classifier: classifier,
		tracker:    tracker,
		log:        log.With(slog.String("watcher", domain)),
	}
	w.cfg.Store(DefaultConfig())
	return w
}

// Domain returns the watcher domain identifier.
func (w *Watcher[S]) Domain() string {
	return w.domain
}

// IsRunning reports whether the poll loop is active.
func (w *Watcher[S]) IsRunning() bool {
	return w.running.Load()
}

// Start spawns the poll loop. It returns false if the watcher is already
// running or the configuration is invalid; in that case nothing is left
// running. Start returns immediately, it does not wait for the first tick.
func (w *Watcher[S]) Start(sink *Sink, cfg *Config) bool {
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			w.log.Error("start rejected", slog.String("error", err.Error()))
			return false
		}
	}
	if !w.running.CompareAndSwap(false, true) {
		return false
	}

	if cfg != nil {
		w.cfg.Store(cfg.Clone())
	}

	w.mu.Lock()
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.sink = sink
	stopCh, done := w.stopCh, w.done
	w.mu.Unlock()

	go w.loop(sink, stopCh, done)
	return true
}

// Stop cooperatively cancels the loop, waits for it to exit, and releases
// the sink. Worst-case latency is one poll interval plus any in-flight
// blocking Poll call. No-op if not running.
func (w *Watcher[S]) Stop() {
	if !w.running.Load() {
		return
	}

	w.mu.Lock()
	stopCh, done, sink := w.stopCh, w.done, w.sink
	w.stopCh = nil
	w.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-done

	w.running.Store(false)
	if sink != nil {
		sink.Release()
	}
}

// SetConfig validates and atomically swaps the configuration. The loop
// goroutine observes the new config on its next tick.
func (w *Watcher[S]) SetConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	w.cfg.Store(cfg.Clone())
	return nil
}

// SetBlacklist replaces the blacklist, keeping the rest of the current
// configuration.
func (w *Watcher[S]) SetBlacklist(list []string) {
	cfg := w.cfg.Load().Clone()
	cfg.Blacklist = append([]string(nil), list...)
	w.cfg.Store(cfg)
}

// Config returns the currently active configuration.
func (w *Watcher[S]) Config() *Config {
	return w.cfg.Load()
}

// Stats returns a snapshot of the loop counters.
func (w *Watcher[S]) Stats() Stats {
	return Stats{
		Emitted:    w.emitted.Load(),
		Suppressed: w.suppressed.Load(),
		Heartbeats: w.heartbeats.Load(),
		PollErrors: w.pollErrors.Load(),
		CacheSize:  w.cacheSize.Load(),
	}
}

// Snapshot performs a synchronous one-shot classification. It does not
// touch the running loop's dedup or heartbeat state; the returned event
// consumes a sequence number but is not delivered to the sink.
func (w *Watcher[S]) Snapshot() (event.Event, error) {
	cfg := w.cfg.Load()

	snap, err := safePoll(w.source)
	if err != nil {
		w.pollErrors.Add(1)
		w.log.Warn("snapshot poll failed", slog.String("error", err.Error()))
		var zero S
		snap = zero
	}

	ev := w.classifier.Classify(snap, cfg)
	score := Score(ev)
	tick := Tick[S]{Snapshot: snap, Evidence: ev, Score: score, Config: cfg, Now: time.Now()}

	payload := w.tracker.State(tick)
	return event.New(w.domain, event.TypeSnapshot, w.seq.Add(1), score, payload), nil
}

// loop is the scheduler: it owns the tick cadence, heartbeat timing, and
// the deduplicator for this run.
func (w *Watcher[S]) loop(sink *Sink, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	cfg := w.cfg.Load()
	dedup := NewDeduplicator(cfg.MinEventInterval)
	dedup.TTL = cfg.DedupTTL
	dedup.Cap = cfg.DedupCap
	loopStart := time.Now()
	var lastBeat time.Time

	w.log.Info("watcher started",
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.Duration("heartbeat_interval", cfg.HeartbeatInterval))

	for {
		select {
		case <-stopCh:
			w.log.Info("watcher stopped")
			return
		default:
		}

		tickStart := time.Now()
		cfg = w.cfg.Load()
		dedup.Window = cfg.MinEventInterval
		dedup.TTL = cfg.DedupTTL
		dedup.Cap = cfg.DedupCap

		w.tick(sink, cfg, dedup, loopStart, &lastBeat)

		dedup.Sweep(time.Now())
		w.cacheSize.Store(int64(dedup.Len()))

		// Sleep only the remainder of the poll interval.
		elapsed := time.Since(tickStart)
		if wait := cfg.PollInterval - elapsed; wait > 0 {
			select {
			case <-stopCh:
				w.log.Info("watcher stopped")
				return
			case <-time.After(wait):
			}
		}
	}
}

// tick runs one poll/classify/track/dedup/emit cycle.
func (w *Watcher[S]) tick(sink *Sink, cfg *Config, dedup *Deduplicator, loopStart time.Time, lastBeat *time.Time) {
	snap, err := safePoll(w.source)
	if err != nil {
		// Non-fatal: log and continue with an empty snapshot.
		w.pollErrors.Add(1)
		w.log.Warn("poll failed", slog.String("error", err.Error()))
		var zero S
		snap = zero
	}

	now := time.Now()
	ev := w.classifier.Classify(snap, cfg)
	score := Score(ev)
	tick := Tick[S]{Snapshot: snap, Evidence: ev, Score: score, Config: cfg, Now: now}

	emitted := false
	for _, cand := range w.tracker.Track(tick) {
		if cand.Type == "" || cand.Type == event.TypeHeartbeat {
			continue
		}
		if !dedup.Admit(cand.Fingerprint, now) {
			w.suppressed.Add(1)
			continue
		}
		out := event.New(w.domain, cand.Type, w.seq.Add(1), cand.Confidence, cand.Payload)
		sink.Send(out)
		w.emitted.Add(1)
		emitted = true
	}

	if emitted {
		return
	}

	// Heartbeat: synthetic liveness event when nothing has fired for the
	// heartbeat interval. Bypasses the fingerprint cache and the floor
	// clock, throttled only by its own timer, delivered without blocking.
	last := dedup.LastEmit()
	if lastBeat.After(last) {
		last = *lastBeat
	}
	if last.IsZero() {
		last = loopStart
	}
	if now.Sub(last) >= cfg.HeartbeatInterval {
		hb := event.New(w.domain, event.TypeHeartbeat, w.seq.Add(1), score, w.tracker.State(tick))
		if sink.TrySend(hb) {
			*lastBeat = now
			w.heartbeats.Add(1)
			w.emitted.Add(1)
		}
	}
}
