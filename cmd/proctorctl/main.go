// proctorctl - control and inspection tool for proctord
//
//	proctorctl domains                 List watcher domains
//	proctorctl snapshot <domain>       One-shot classification of a domain
//	proctorctl events [options]        Query the event journal
//	proctorctl check-config [path]     Validate a configuration file
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"proctord/internal/clipmon"
	"proctord/internal/config"
	"proctord/internal/devmon"
	"proctord/internal/engine"
	"proctord/internal/idlemon"
	"proctord/internal/journal"
	"proctord/internal/logging"
	"proctord/internal/notifymon"
	"proctord/internal/procmon"
	"proctord/internal/registry"
	"proctord/internal/screenmon"
	"proctord/internal/vmmon"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "domains":
		cmdDomains()
	case "snapshot":
		cmdSnapshot(os.Args[2:])
	case "events":
		cmdEvents(os.Args[2:])
	case "check-config":
		cmdCheckConfig(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`proctorctl - control and inspection tool for proctord

USAGE:
    proctorctl <command> [options]

COMMANDS:
    domains             List watcher domains
    snapshot <domain>   Print a one-shot classification of a domain
    events              Query the event journal
    check-config [path] Validate a configuration file
    help                Show this help message

OPTIONS (events):
    -config <path>   Configuration file (for the journal path)
    -module <name>   Restrict to one watcher domain
    -type <name>     Restrict to one event type
    -since <dur>     Restrict to events newer than a duration (e.g. 1h)
    -limit <n>       Maximum events to print (default 20)`)
}

// buildRegistry registers one of every watcher, quiet logger attached.
func buildRegistry() *registry.Registry {
	lc := logging.DefaultConfig()
	lc.Level = slog.LevelError
	log := logging.New(lc)

	reg := registry.New()
	for _, w := range []engine.Handle{
		procmon.New(log),
		screenmon.New(log),
		clipmon.New(log),
		devmon.New(log),
		devmon.NewBluetooth(log),
		idlemon.New(log),
		notifymon.New(log),
		vmmon.New(log),
	} {
		if err := reg.Register(w); err != nil {
			fmt.Fprintf(os.Stderr, "register: %v\n", err)
			os.Exit(1)
		}
	}
	return reg
}

func cmdDomains() {
	for _, d := range buildRegistry().Domains() {
		fmt.Println(d)
	}
}

func cmdSnapshot(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: proctorctl snapshot <domain>")
		os.Exit(1)
	}
	domain := args[0]

	reg := buildRegistry()
	w, ok := reg.Get(domain)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown domain %q (see: proctorctl domains)\n", domain)
		os.Exit(1)
	}

	ev, err := w.Snapshot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
		os.Exit(1)
	}
	printJSON(ev)
}

func cmdEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "configuration file path")
	module := fs.String("module", "", "restrict to one watcher domain")
	eventType := fs.String("type", "", "restrict to one event type")
	since := fs.Duration("since", 0, "restrict to events newer than this duration")
	limit := fs.Int("limit", 20, "maximum events to print")
	fs.Parse(args)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	jour, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer jour.Close()

	q := journal.Query{Module: *module, Type: *eventType, Limit: *limit}
	if *since > 0 {
		q.Since = time.Now().Add(-*since)
	}

	events, err := jour.Events(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}
	for _, ev := range events {
		printJSON(ev)
	}
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

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
