// Package registry holds the set of watchers owned by one host process.
//
// The registry is an explicit context object passed through the API: there
// are no module-level watcher singletons. Each watcher gets its own sink
// so per-watcher ordering is preserved, while all sinks share the single
// host callback.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"proctord/internal/engine"
	"proctord/internal/event"
)

// Callback receives every event emitted by every registered watcher.
type Callback func(event.Event)

// Registry owns a set of watchers keyed by domain.
type Registry struct {
	mu       sync.RWMutex
	watchers map[string]engine.Handle
	sinks    map[string]*engine.Sink
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		watchers: make(map[string]engine.Handle),
		sinks:    make(map[string]*engine.Sink),
	}
}

// Register adds a watcher. Registering a duplicate domain is an error.
func (r *Registry) Register(w engine.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	domain := w.Domain()
	if _, exists := r.watchers[domain]; exists {
		return fmt.Errorf("registry: domain %q already registered", domain)
	}
	r.watchers[domain] = w
	return nil
}

// Get returns the watcher for a domain.
func (r *Registry) Get(domain string) (engine.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.watchers[domain]
	return w, ok
}

// Domains returns the registered domain names, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]string, 0, len(r.watchers))
	for d := range r.watchers {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Start starts one watcher with its own sink feeding the callback.
// It returns false if the domain is unknown or the watcher was already
// running.
func (r *Registry) Start(domain string, cb Callback, cfg *engine.Config) bool {
	r.mu.Lock()
	w, ok := r.watchers[domain]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if w.IsRunning() {
		r.mu.Unlock()
		return false
	}

	sink := engine.NewSink(cb)
	r.sinks[domain] = sink
	r.mu.Unlock()

	if !w.Start(sink, cfg) {
		r.mu.Lock()
		delete(r.sinks, domain)
		r.mu.Unlock()
		sink.Release()
		return false
	}
	return true
}

// Stop stops one watcher. No-op for unknown or stopped domains.
func (r *Registry) Stop(domain string) {
	r.mu.Lock()
	w, ok := r.watchers[domain]
	delete(r.sinks, domain)
	r.mu.Unlock()

	if ok {
		w.Stop()
	}
}

// StartAll starts every registered watcher with per-domain configs.
// Domains missing from configs fall back to the default config. The
// returned map reports the per-domain start result.
func (r *Registry) StartAll(cb Callback, configs map[string]*engine.Config) map[string]bool {
	results := make(map[string]bool)
	for _, domain := range r.Domains() {
		cfg := configs[domain]
		if cfg == nil {
			cfg = engine.DefaultConfig()
		}
		results[domain] = r.Start(domain, cb, cfg)
	}
	return results
}

// StopAll stops every running watcher.
func (r *Registry) StopAll() {
	for _, domain := range r.Domains() {
		r.Stop(domain)
	}
}

// Running returns the domains whose watchers are currently running.
func (r *Registry) Running() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var running []string
	for d, w := range r.watchers {
		if w.IsRunning() {
			running = append(running, d)
		}
	}
	sort.Strings(running)
	return running
}

// Stats returns per-domain loop counters.
func (r *Registry) Stats() map[string]engine.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]engine.Stats, len(r.watchers))
	for d, w := range r.watchers {
		out[d] = w.Stats()
	}
	return out
}
