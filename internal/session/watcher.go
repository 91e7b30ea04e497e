package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cc_session_mgr/internal/logging"
)

const transcriptExt = ".jsonl"

var watcherLog = logging.ForComponent(logging.CompWatcher)

// Event ops reported by the watcher
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// Event describes a change to a transcript file
type Event struct {
	Op   string    `json:"op"`
	Path string    `json:"path"`
	Time time.Time `json:"time"`
}

// Watcher monitors the projects directory, one level deep, for transcript changes
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	now       func() time.Time

	mu        sync.Mutex
	watched   map[string]bool
	rootFound bool
	stopped   bool

	Events chan Event
	Errors chan error
	done   chan struct{}
}

// NewWatcher creates a new transcript watcher for root
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		root:      filepath.Clean(root),
		now:       time.Now,
		watched:   make(map[string]bool),
		Events:    make(chan Event, 100),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}

	return w, nil
}

// Start registers the watches and begins the event loop.
// If root does not exist yet its parent is watched so root is picked up once created.
func (w *Watcher) Start() error {
	w.mu.Lock()
	err := w.addRootLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}

	go w.watchLoop()
	watcherLog.Info("watcher_started", slog.String("root", w.root))
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	return w.fsWatcher.Close()
}

// addRootLocked must be called with w.mu held.
func (w *Watcher) addRootLocked() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watch %s: %w", w.root, err)
		}
		parent := filepath.Dir(w.root)
		if perr := w.fsWatcher.Add(parent); perr != nil {
			return fmt.Errorf("watch %s: %w", parent, perr)
		}
		w.watched[parent] = true
		watcherLog.Warn("watcher_root_missing", slog.String("root", w.root), slog.String("watching", parent))
		return nil
	}
	w.watched[w.root] = true
	w.rootFound = true

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		w.addDirLocked(filepath.Join(w.root, entry.Name()))
	}
	return nil
}

// addDirLocked must be called with w.mu held.
func (w *Watcher) addDirLocked(dir string) {
	if w.watched[dir] {
		return
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		watcherLog.Warn("watch_dir_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	w.watched[dir] = true
}

// watchLoop handles fsnotify events
func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			watcherLog.Warn("watcher_error", slog.String("error", err.Error()))
			select {
			case w.Errors <- err:
			default:
				// Error channel full, drop
			}
		}
	}
}

// handleFSEvent processes a filesystem event
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if name != w.root && isHidden(filepath.Base(name)) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			w.handleNewDir(name)
			return
		}
	}

	if !strings.HasSuffix(name, transcriptExt) {
		return
	}
	// Only the root and its immediate subdirectories are in scope.
	if parent := filepath.Dir(name); parent != w.root && filepath.Dir(parent) != w.root {
		return
	}

	op := eventOp(event.Op)
	if op == "" {
		return
	}

	w.emit(Event{Op: op, Path: name, Time: w.now()})
}

// handleNewDir starts watching a newly created project directory, or the
// root itself if it was missing at start.
func (w *Watcher) handleNewDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case dir == w.root && !w.rootFound:
		if err := w.addRootLocked(); err != nil {
			watcherLog.Warn("watch_root_failed", slog.String("root", w.root), slog.String("error", err.Error()))
			return
		}
		watcherLog.Info("watcher_root_created", slog.String("root", w.root))
	case filepath.Dir(dir) == w.root:
		w.addDirLocked(dir)
		// Transcripts written before the watch was registered.
		for _, name := range listTranscripts(dir) {
			w.emit(Event{Op: OpCreate, Path: filepath.Join(dir, name), Time: w.now()})
		}
	}
}

// emit sends without blocking; a full buffer already implies a pending invalidation.
func (w *Watcher) emit(ev Event) {
	watcherLog.Debug("transcript_changed", slog.String("op", ev.Op), slog.String("path", ev.Path))
	select {
	case w.Events <- ev:
	default:
	}
}

func eventOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	}
	return ""
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
