// proctord - session integrity monitoring daemon
//
// proctord runs a set of domain watchers (process, screen, clipboard,
// devices, bluetooth, idle, notifications, vm) and emits integrity
// events to the journal and to the log. Health and metrics endpoints
// are served over HTTP when enabled.
//
//	proctord run [-config path]     Run the daemon
//	proctord check-config [path]    Validate a configuration file
//	proctord version                Print the version
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proctord/internal/clipmon"
	"proctord/internal/config"
	"proctord/internal/devmon"
	"proctord/internal/engine"
	"proctord/internal/event"
	"proctord/internal/health"
	"proctord/internal/idlemon"
	"proctord/internal/journal"
	"proctord/internal/logging"
	"proctord/internal/metrics"
	"proctord/internal/notifymon"
	"proctord/internal/procmon"
	"proctord/internal/registry"
	"proctord/internal/screenmon"
	"proctord/internal/vmmon"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "check-config":
		cmdCheckConfig(os.Args[2:])
	case "version":
		fmt.Println("proctord " + version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`proctord - session integrity monitoring daemon

USAGE:
    proctord <command> [options]

COMMANDS:
    run             Run the daemon
    check-config    Validate a configuration file
    version         Print the version
    help            Show this help message

OPTIONS (run):
    -config <path>  Configuration file (default: ` + config.DefaultPath() + `)

Events are recorded to the SQLite journal and logged. Content payloads
honor the configured privacy mode; METADATA_ONLY is the default.`)
}

func cmdCheckConfig(args []string) {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid:\n%v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("%s: OK\n", path)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "configuration file path")
	fs.Parse(args)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	logging.SetDefault(log)

	d, err := newDaemon(cfg, log)
	if err != nil {
		log.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := d.run(*configPath); err != nil {
		log.Error("daemon failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		lc.Level = lvl
	}
	if f, err := logging.ParseFormat(cfg.Logging.Format); err == nil {
		lc.Format = f
	}
	if cfg.Logging.Output != "" {
		lc.Output = cfg.Logging.Output
	}
	return logging.New(lc)
}

// daemon wires the watcher registry to the journal, health checker, and
// metrics registry.
type daemon struct {
	cfg      *config.Config
	log      *slog.Logger
	reg      *registry.Registry
	jour     *journal.Journal
	checker  *health.Checker
	metrics  *metrics.Registry
	recorded *metrics.Counter
	dropped  *metrics.Counter
}

func newDaemon(cfg *config.Config, log *slog.Logger) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		log:     log,
		reg:     registry.New(),
		checker: health.NewChecker(),
		metrics: metrics.Default(),
	}
	d.recorded = d.metrics.Counter("proctord_journal_records_total",
		"Events recorded to the journal.", nil)
	d.dropped = d.metrics.Counter("proctord_journal_errors_total",
		"Journal write failures.", nil)

	for _, w := range watchers(log) {
		if err := d.reg.Register(w); err != nil {
			return nil, err
		}
	}

	if cfg.Journal.Enabled {
		jour, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.jour = jour
		d.checker.RegisterFunc("journal", true, health.DatabaseCheck(jour.Ping))
	}

	for _, domain := range d.reg.Domains() {
		domain := domain
		if !cfg.WatcherEnabled(domain) {
			continue
		}
		d.checker.RegisterFunc("watcher:"+domain, false, health.WatcherCheck(func() bool {
			w, ok := d.reg.Get(domain)
			return ok && w.IsRunning()
		}))
	}

	return d, nil
}

// watchers builds one instance of every domain watcher.
func watchers(log *slog.Logger) []engine.Handle {
	return []engine.Handle{
		procmon.New(log),
		screenmon.New(log),
		clipmon.New(log),
		devmon.New(log),
		devmon.NewBluetooth(log),
		idlemon.New(log),
		notifymon.New(log),
		vmmon.New(log),
	}
}

func (d *daemon) run(configPath string) error {
	defer func() {
		if d.jour != nil {
			d.jour.Close()
		}
	}()

	configs, err := d.watcherConfigs(d.cfg)
	if err != nil {
		return err
	}

	for _, domain := range d.reg.Domains() {
		cfg, ok := configs[domain]
		if !ok {
			continue // disabled
		}
		if !d.reg.Start(domain, d.handleEvent, cfg) {
			d.log.Warn("watcher failed to start", slog.String("watcher", domain))
		}
	}
	defer d.reg.StopAll()

	d.checker.SetReady(true)
	defer d.checker.SetReady(false)

	srv := d.serveHTTP()
	if srv != nil {
		defer shutdownHTTP(srv)
	}

	reloader, err := config.NewReloader(configPath, d.applyConfig, d.log)
	if err != nil {
		d.log.Warn("config reload unavailable", slog.String("error", err.Error()))
	} else {
		defer reloader.Close()
	}

	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()
	pruneTicker := time.NewTicker(time.Hour)
	defer pruneTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d.log.Info("proctord started",
		slog.String("version", version),
		slog.Any("running", d.reg.Running()))

	for {
		select {
		case sig := <-sigCh:
			d.log.Info("shutting down", slog.String("signal", sig.String()))
			return nil
		case <-statsTicker.C:
			d.exportStats()
		case <-pruneTicker.C:
			d.pruneJournal()
		}
	}
}

// watcherConfigs builds the per-domain engine configs. Disabled domains
// are left out of the map and never started.
func (d *daemon) watcherConfigs(cfg *config.Config) (map[string]*engine.Config, error) {
	out := make(map[string]*engine.Config)
	for _, domain := range d.reg.Domains() {
		if !cfg.WatcherEnabled(domain) {
			continue
		}
		ec, err := cfg.WatcherConfig(domain)
		if err != nil {
			return nil, fmt.Errorf("watcher %s: %w", domain, err)
		}
		out[domain] = ec
	}
	return out, nil
}

// handleEvent is the single sink callback shared by all watchers.
func (d *daemon) handleEvent(ev event.Event) {
	if err := ev.Validate(); err != nil {
		d.log.Warn("event failed schema validation",
			slog.String("watcher", ev.Module),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()))
	}

	d.log.Info("event",
		slog.String("watcher", ev.Module),
		slog.String("type", ev.Type),
		slog.Int64("seq", ev.Sequence),
		slog.Float64("confidence", ev.Confidence))

	d.metrics.Counter("proctord_events_total", "Events emitted by watchers.",
		metrics.Labels{"module": ev.Module, "type": ev.Type}).Inc()

	if d.jour == nil || ev.Type == event.TypeHeartbeat {
		return
	}
	if err := d.jour.Record(ev); err != nil {
		d.dropped.Inc()
		d.log.Error("journal write failed", slog.String("error", err.Error()))
		return
	}
	d.recorded.Inc()
}

// applyConfig pushes a reloaded configuration to running watchers and
// starts/stops domains whose enabled flag flipped.
func (d *daemon) applyConfig(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		d.log.Warn("reloaded config rejected", slog.String("error", err.Error()))
		return
	}
	d.cfg = cfg

	for _, domain := range d.reg.Domains() {
		w, ok := d.reg.Get(domain)
		if !ok {
			continue
		}

		if !cfg.WatcherEnabled(domain) {
			if w.IsRunning() {
				d.log.Info("watcher disabled by reload", slog.String("watcher", domain))
				d.reg.Stop(domain)
			}
			continue
		}

		ec, err := cfg.WatcherConfig(domain)
		if err != nil {
			d.log.Warn("reloaded watcher config rejected",
				slog.String("watcher", domain),
				slog.String("error", err.Error()))
			continue
		}

		if !w.IsRunning() {
			if d.reg.Start(domain, d.handleEvent, ec) {
				d.log.Info("watcher enabled by reload", slog.String("watcher", domain))
			}
			continue
		}
		if err := w.SetConfig(ec); err != nil {
			d.log.Warn("config swap rejected",
				slog.String("watcher", domain),
				slog.String("error", err.Error()))
		}
	}
	d.log.Info("configuration reloaded")
}

// serveHTTP starts the health/metrics listener when enabled. Both
// endpoints share one mux; a separate metrics address gets its own
// listener.
func (d *daemon) serveHTTP() *http.Server {
	if !d.cfg.Health.Enabled && !d.cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	addr := d.cfg.Health.Addr
	if d.cfg.Health.Enabled {
		mux.Handle("/healthz", d.checker.Handler())
		mux.Handle("/livez", d.checker.LivenessHandler())
		mux.Handle("/readyz", d.checker.ReadinessHandler())
	}
	if d.cfg.Metrics.Enabled && (d.cfg.Metrics.Addr == "" || d.cfg.Metrics.Addr == addr) {
		mux.Handle("/metrics", d.metrics.Handler())
	}
	if addr == "" {
		addr = d.cfg.Metrics.Addr
	}

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if d.cfg.Metrics.Enabled && d.cfg.Metrics.Addr != "" && d.cfg.Metrics.Addr != addr {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", d.metrics.Handler())
		metricsSrv := &http.Server{
			Addr:              d.cfg.Metrics.Addr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				d.log.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}
	return srv
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// exportStats publishes loop counters as gauges.
func (d *daemon) exportStats() {
	for domain, stats := range d.reg.Stats() {
		labels := metrics.Labels{"module": domain}
		d.metrics.Gauge("proctord_watcher_emitted", "Events emitted.", labels).Set(float64(stats.Emitted))
		d.metrics.Gauge("proctord_watcher_suppressed", "Events suppressed by dedup.", labels).Set(float64(stats.Suppressed))
		d.metrics.Gauge("proctord_watcher_heartbeats", "Heartbeats emitted.", labels).Set(float64(stats.Heartbeats))
		d.metrics.Gauge("proctord_watcher_poll_errors", "Poll failures.", labels).Set(float64(stats.PollErrors))
		d.metrics.Gauge("proctord_watcher_cache_size", "Dedup cache entries.", labels).Set(float64(stats.CacheSize))
	}
}

func (d *daemon) pruneJournal() {
	if d.jour == nil || d.cfg.Journal.RetainDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -d.cfg.Journal.RetainDays)
	n, err := d.jour.Prune(cutoff)
	if err != nil {
		d.log.Warn("journal prune failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		d.log.Info("journal pruned", slog.Int64("removed", n))
	}
}
