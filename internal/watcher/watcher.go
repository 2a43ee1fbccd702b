// Package watcher monitors the profile database for out-of-process writes
// and publishes a debounced change notification on the bus.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/log"
)

// Config holds watcher configuration options.
type Config struct {
	DBPath      string
	DebounceDur time.Duration
	Sidecars    bool // also react to -wal and -journal writes
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:      dbPath,
		DebounceDur: time.Second,
		Sidecars:    true,
	}
}

// Watcher publishes events.TopicExternalChange when the profile database
// changes on disk. Bursts of writes collapse into one notification.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dbPath    string
	sidecars  bool
	debouncer *bus.Debouncer
	done      chan struct{}
}

// New creates a database watcher publishing on b.
func New(b *bus.Bus, cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		dbPath:    cfg.DBPath,
		sidecars:  cfg.Sidecars,
		debouncer: bus.NewDebouncer(b, events.TopicExternalChange, cfg.DebounceDur),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the directory containing the database, so rotations
// and fresh WAL files are seen too.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.dbPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.loop()
	log.Debug(log.CatWatcher, "watching profile database", "path", w.dbPath)
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			w.debouncer.Trigger(events.ExternalChange{Path: w.dbPath})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			return
		}
	}
}

// isRelevantEvent reports whether the event touches the database or its
// sidecar files.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	base := filepath.Base(w.dbPath)
	got := filepath.Base(event.Name)
	if got == base {
		return true
	}
	return w.sidecars && (got == base+"-wal" || got == base+"-journal")
}
