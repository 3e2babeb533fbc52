package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of write events most editors produce
// for a single save.
const watchDebounce = 200 * time.Millisecond

// Event carries a reloaded configuration or the error that prevented the
// reload.
type Event struct {
	Config *Config
	Error  error
}

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
}

// NewWatcher creates a watcher for the config file at path. The file's
// directory is watched rather than the file itself, so atomic
// rename-into-place saves are seen too.
func NewWatcher(path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:    path,
		watcher: fsWatcher,
		events:  make(chan Event, 4),
	}, nil
}

// Events returns the channel reload results are delivered on.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. It returns once the watch is registered; reload
// events are delivered until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	var pending bool
	var pendingSince time.Time

	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = true
				pendingSince = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.deliver(Event{Error: err})

		case <-ticker.C:
			if pending && time.Since(pendingSince) >= watchDebounce {
				pending = false
				cfg, err := Load(w.path)
				w.deliver(Event{Config: cfg, Error: err})
			}
		}
	}
}

// deliver never blocks; a stalled consumer loses older reload events.
func (w *Watcher) deliver(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}
