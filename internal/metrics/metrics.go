// Package metrics provides Prometheus-compatible metrics for proctord.
//
// Features:
//   - Counters for emitted, suppressed, and errored events per watcher
//   - Gauges for running watchers and fingerprint cache sizes
//   - Text exposition over HTTP for scraping
//   - Thread-safe operations
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Labels represents metric labels.
type Labels map[string]string

// String returns the exposition form of the labels.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}

	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(l))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, l[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels Labels
	value  atomic.Uint64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add increments the counter by n.
func (c *Counter) Add(n uint64) {
	c.value.Add(n)
}

// Value returns the current counter value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels Labels
	bits   atomic.Uint64
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Registry holds metrics and renders the exposition format.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
	}
}

// Counter returns the counter for name+labels, creating it on first use.
func (r *Registry) Counter(name, help string, labels Labels) *Counter {
	key := name + labels.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: labels}
	r.counters[key] = c
	r.order = append(r.order, key)
	return c
}

// Gauge returns the gauge for name+labels, creating it on first use.
func (r *Registry) Gauge(name, help string, labels Labels) *Gauge {
	key := name + labels.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gauges[key]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[key] = g
	r.order = append(r.order, key)
	return g
}

// Render writes the Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	seenHelp := make(map[string]bool)

	for _, key := range r.order {
		if c, ok := r.counters[key]; ok {
			if !seenHelp[c.name] {
				fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
				seenHelp[c.name] = true
			}
			fmt.Fprintf(&b, "%s%s %d\n", c.name, c.labels.String(), c.Value())
		}
		if g, ok := r.gauges[key]; ok {
			if !seenHelp[g.name] {
				fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name)
				seenHelp[g.name] = true
			}
			fmt.Fprintf(&b, "%s%s %g\n", g.name, g.labels.String(), g.Value())
		}
	}
	return b.String()
}

// Handler returns an HTTP handler serving the exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, r.Render())
	})
}

// Default global registry.
var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the default global registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
