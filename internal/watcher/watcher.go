// Package watcher watches ranking files on disk and reports, debounced, which
// of them changed.
package watcher

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/classwind/internal/log"
)

// Watcher monitors the directories of registered files and sends the set of
// changed file paths once writes settle.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	names     map[string]struct{}
	debounce  time.Duration
	onChange  chan []string
	done      chan struct{}
	stopOnce  sync.Once

	mu      sync.Mutex
	dirs    map[string]struct{}
	started bool
}

// Config holds watcher configuration options.
type Config struct {
	// Names lists the base names that are relevant. Events on other files in
	// a watched directory are ignored.
	Names       []string
	DebounceDur time.Duration
}

// DefaultConfig returns the defaults for the given relevant base names.
func DefaultConfig(names ...string) Config {
	return Config{
		Names:       names,
		DebounceDur: 250 * time.Millisecond,
	}
}

// New creates a new watcher. No directory is watched until Watch is called.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	names := make(map[string]struct{}, len(cfg.Names))
	for _, n := range cfg.Names {
		names[n] = struct{}{}
	}

	return &Watcher{
		fsWatcher: fsw,
		names:     names,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan []string),
		done:      make(chan struct{}),
		dirs:      make(map[string]struct{}),
	}, nil
}

// Watch starts watching the directory containing path. Watching the same
// directory twice is a no-op.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	log.Debug(log.CatWatcher, "watching directory", "dir", dir)

	return nil
}

// Start begins processing events. The returned channel receives the sorted,
// de-duplicated paths that changed during one debounce window. It is closed
// when the watcher stops.
func (w *Watcher) Start() (<-chan []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil, fmt.Errorf("watcher already started")
	}
	w.started = true

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	defer close(w.onChange)

	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)

	timerC := func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return nil
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			pending[filepath.Clean(event.Name)] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC():
			timer = nil
			if len(pending) == 0 {
				continue
			}

			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)

			log.Debug(log.CatWatcher, "files changed", "count", len(paths))

			select {
			case w.onChange <- paths:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a notification.
// Removals and renames count so a deleted file is dropped from caches.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	_, ok := w.names[filepath.Base(event.Name)]
	return ok
}
