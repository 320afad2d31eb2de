// pattern: Imperative Shell

// Package watch reports changes to a checkpoint directory's working tree so
// views can refresh their status without polling git.
package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"restorepoint/internal/events"
	"restorepoint/internal/logging"
)

// Watcher watches a directory tree, .git excluded, and emits one
// events.WorkTreeChangedMsg per burst of changes.
type Watcher struct {
	root     string
	debounce time.Duration
	notify   events.Notifier
	logger   *logging.ScopedLogger

	fsw  *fsnotify.Watcher
	done chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	closed  bool
}

// New creates a Watcher for root. Call Start to begin delivering events.
func New(root string, debounce time.Duration, notify events.Notifier, logger *logging.ScopedLogger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		notify:   notify,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// Start begins delivering events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	go w.loop()
	return nil
}

// Close stops the watcher and drops any pending notification.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
		return
	}
	if event.Has(fsnotify.Create) {
		// New directories are not covered by the existing watches.
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("failed to watch new path", "path", event.Name, "error", err.Error())
		}
	}
	w.schedule(event.Name)
}

// schedule restarts the debounce timer; the last path seen is reported.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if !closed && w.notify != nil {
			w.notify(events.WorkTreeChangedMsg{Path: path})
		}
	})
}

// addTree watches path and every directory below it, except .git.
func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first == ".git"
}
