package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches a config file and invokes a callback with freshly
// loaded configuration when the file changes. Invalid edits are logged
// and ignored, keeping the last good config in effect.
type Reloader struct {
	path     string
	onChange func(*Config)
	log      *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewReloader creates a reloader for the given config path.
func NewReloader(path string, onChange func(*Config), log *slog.Logger) (*Reloader, error) {
	if log == nil {
		log = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	r := &Reloader{
		path:     path,
		onChange: onChange,
		log:      log,
		debounce: 500 * time.Millisecond,
		watcher:  fw,
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()
	return r, nil
}

// Close stops watching.
func (r *Reloader) Close() error {
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	return err
}

func (r *Reloader) run() {
	defer r.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of events from a single save.
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				timer.Reset(r.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("config watch error", slog.String("error", err.Error()))
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		r.log.Warn("config reload rejected",
			slog.String("path", r.path),
			slog.String("error", err.Error()))
		return
	}

	r.log.Info("config reloaded", slog.String("path", r.path))
	r.onChange(cfg)
}
