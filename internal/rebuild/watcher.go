package rebuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"replkit/internal/notify"
	"replkit/internal/project"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher monitors the project's source directories and records a
// pending rebuild whenever a library file changes. Changed files are
// also published on Events so a caller can trigger incremental loads.
type Watcher struct {
	root     string
	resolver *project.Resolver
	tracker  *Tracker
	notifier notify.Notifier
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan string
	done     chan struct{}

	// Debouncing state
	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
}

// NewWatcher creates a watcher rooted at the project directory.
func NewWatcher(root string, resolver *project.Resolver, tracker *Tracker, notifier notify.Notifier) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		root:     root,
		resolver: resolver,
		tracker:  tracker,
		notifier: notifier,
		watcher:  fsw,
		debounce: defaultDebounce,
		events:   make(chan string, 100),
		done:     make(chan struct{}),
		pending:  make(map[string]struct{}),
	}, nil
}

// Start begins watching every declared source directory.
func (w *Watcher) Start(ctx context.Context) error {
	for _, pkg := range w.resolver.Packages() {
		for _, st := range pkg.Stanzas {
			for _, dir := range st.SourceDirs {
				full := filepath.Join(w.root, pkg.Root, dir)
				if err := w.addRecursive(full); err != nil {
					return err
				}
			}
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Events emits project-relative paths of changed source files, debounced.
func (w *Watcher) Events() <-chan string {
	return w.events
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.notifier.LogError(fmt.Sprintf("failed to watch %s: %v", path, err))
			}
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.notifier.LogError(fmt.Sprintf("file watcher error: %v", err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}

	// New directories need to be picked up for recursive watching.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	if _, _, ok := w.resolver.StanzaFor(rel); !ok {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[rel] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush records pending rebuilds for changed library files and emits
// every changed file once.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	for _, file := range files {
		if _, lib, target, ok := w.resolver.LibraryOwning(file); ok {
			w.tracker.Record(lib, Pending{
				Target: target,
				Reason: file + " changed",
			})
		}
		select {
		case w.events <- file:
		case <-w.done:
			return
		default:
			// Drop on a full channel rather than stall the watcher.
		}
	}
}
