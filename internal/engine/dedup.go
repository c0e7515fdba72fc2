package engine

import "time"

// Deduplicator suppresses near-duplicate and too-frequent events.
//
// Two rejection rules apply to every candidate:
//   - the same fingerprint seen within the per-fingerprint window, and
//   - any emission from this watcher within the small global floor.
//
// The fingerprint cache is bounded: entries older than the TTL are swept
// each tick, and exceeding the hard cap triggers a full bulk clear rather
// than incremental eviction. Owned by the loop goroutine; no locking.
type Deduplicator struct {
	// Window is the per-fingerprint suppression interval.
	Window time.Duration

	// Floor is the minimum spacing between any two emissions.
	Floor time.Duration

	// TTL is the cache entry lifetime (domain-specific, 30s-5min).
	TTL time.Duration

	// Cap is the hard cache size limit triggering a bulk clear.
	Cap int

	entries  map[string]time.Time
	lastEmit time.Time
}

// Dedup policy defaults, from the observed watcher behavior.
const (
	DefaultDedupFloor = 100 * time.Millisecond
	DefaultDedupTTL   = 60 * time.Second
	DefaultDedupCap   = 1000
)

// NewDeduplicator creates a deduplicator with the given per-fingerprint
// window and defaults for floor, TTL, and cap.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		Window:  window,
		Floor:   DefaultDedupFloor,
		TTL:     DefaultDedupTTL,
		Cap:     DefaultDedupCap,
		entries: make(map[string]time.Time),
	}
}

// Admit decides whether a candidate event may be emitted at now, and if
// so records it. Candidates with an empty fingerprint skip the
// per-fingerprint window but still honor the global floor.
//
// The loop captures one now per tick, so candidates carrying the exact
// same instant form one batch: the floor spaces batches apart, it never
// splits one. Set-diff trackers depend on this to emit several events
// from a single tick.
func (d *Deduplicator) Admit(fingerprint string, now time.Time) bool {
	if !d.lastEmit.IsZero() && !now.Equal(d.lastEmit) && now.Sub(d.lastEmit) < d.floor() {
		return false
	}

	if fingerprint != "" {
		if last, ok := d.entries[fingerprint]; ok && now.Sub(last) < d.Window {
			return false
		}
		if d.entries == nil {
			d.entries = make(map[string]time.Time)
		}
		d.entries[fingerprint] = now
	}

	d.lastEmit = now
	return true
}

// LastEmit returns the time of the most recent emission, or zero.
func (d *Deduplicator) LastEmit() time.Time {
	return d.lastEmit
}

// Sweep drops entries older than the TTL. If the cache still exceeds the
// hard cap afterwards, the whole cache is bulk-cleared.
func (d *Deduplicator) Sweep(now time.Time) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	for fp, at := range d.entries {
		if now.Sub(at) > ttl {
			delete(d.entries, fp)
		}
	}

	limit := d.Cap
	if limit <= 0 {
		limit = DefaultDedupCap
	}
	if len(d.entries) > limit {
		d.entries = make(map[string]time.Time)
	}
}

// Len returns the current fingerprint cache size.
func (d *Deduplicator) Len() int {
	return len(d.entries)
}

func (d *Deduplicator) floor() time.Duration {
	if d.Floor > 0 {
		return d.Floor
	}
	return DefaultDedupFloor
}
