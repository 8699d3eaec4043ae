package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period between the last change to the
// cookies file and the reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc re-reads the credentials and reports how many cookies were
// loaded.
type ReloadFunc func() (int, error)

// EventType classifies a change to the watched file.
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns the string representation of an EventType
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	}
	return 0, false
}

// Watcher reloads credentials when the cookies file changes. It watches the
// parent directory so that files replaced by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	logger   *slog.Logger

	debouncer *Debouncer
	fsw       *fsnotify.Watcher
	wg        sync.WaitGroup
	reloads   atomic.Int64
	failures  atomic.Int64

	mu      sync.Mutex
	running bool
}

// New creates a watcher for the cookies file at path. A non-positive
// debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, reload ReloadFunc, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("cookies file path is empty")
	}
	if reload == nil {
		return nil, fmt.Errorf("reload function is nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:      abs,
		debounce:  debounce,
		reload:    reload,
		logger:    logger,
		debouncer: NewDebouncer(debounce),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. It returns once the watch is registered; events
// are handled in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.fsw = fsw
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx, fsw)

	w.logger.Info("Watching cookies file",
		"path", w.path,
		"debounce", w.debounce.String(),
	)
	return nil
}

// Stop ends watching and drops any pending reload.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	err := fsw.Close()
	w.wg.Wait()
	w.debouncer.Cancel()
	return err
}

// Stats reports how many reloads succeeded and failed.
func (w *Watcher) Stats() (reloads, failures int64) {
	return w.reloads.Load(), w.failures.Load()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.debouncer.Cancel()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Cookies file watch error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	typ, ok := eventType(ev.Op)
	if !ok {
		return
	}
	w.logger.Debug("Cookies file changed", "event", typ.String())

	switch typ {
	case EventDelete, EventRename:
		// The file is gone for now; a later create triggers the reload.
		return
	}
	w.debouncer.Trigger(w.doReload)
}

func (w *Watcher) doReload() {
	n, err := w.reload()
	if err != nil {
		w.failures.Add(1)
		w.logger.Warn("Reloading credentials failed",
			"path", w.path,
			"error", err.Error(),
		)
		return
	}
	w.reloads.Add(1)
	w.logger.Info("Reloaded credentials", "path", w.path, "count", n)
}
