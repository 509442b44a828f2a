package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultExtension is the transcript file extension that is watched
	DefaultExtension = ".jsonl"
	// DefaultDebounce is how long a path stays in flight after a pass
	DefaultDebounce = 500 * time.Millisecond
	// DefaultStopTimeout bounds how long Stop waits for the event loop
	DefaultStopTimeout = 2 * time.Second

	passQueue = 64
)

var (
	ErrDirNotFound    = errors.New("session directory not found")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrStopTimeout    = errors.New("timed out waiting for watcher to stop")
)

// FileHandler processes one changed file. It runs on the watcher goroutine.
type FileHandler func(path string)

// Watcher watches a single directory (non-recursively) for changes to
// transcript files and runs a handler for each, absorbing bursts of
// notifications for the same path within the debounce window. A path that
// was notified while in flight gets one trailing pass when the window ends,
// so the last write of a burst is never left behind.
type Watcher struct {
	handler   FileHandler
	extension string
	debounce  time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	pending  map[string]struct{}
	fsw      *fsnotify.Watcher
	passes   chan string
	dir      string
	done     chan struct{}
	exited   chan struct{}
}

// WatcherOption customizes a Watcher
type WatcherOption func(*Watcher)

// WithExtension sets the file extension to react to (including the dot)
func WithExtension(ext string) WatcherOption {
	return func(w *Watcher) { w.extension = ext }
}

// WithDebounce sets the in-flight window
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher that calls handler for qualifying changes
func NewWatcher(handler FileHandler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		handler:   handler,
		extension: DefaultExtension,
		debounce:  DefaultDebounce,
		logger:    discardLogger(),
		inFlight:  make(map[string]struct{}),
		pending:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher")
	return w
}

// Start subscribes to change notifications for dir and begins the event loop
func (w *Watcher) Start(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirNotFound, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.fsw = fsw
	w.dir = dir
	w.done = make(chan struct{})
	w.exited = make(chan struct{})
	w.passes = make(chan string, passQueue)

	go w.watchLoop(fsw, w.passes, w.done, w.exited)

	w.logger.Info("watching session directory", "dir", dir)
	return nil
}

// Stop ends the subscription and waits up to timeout for the event loop to
// finish its current pass. Resources are released even when the wait times out.
func (w *Watcher) Stop(timeout time.Duration) error {
	w.mu.Lock()
	fsw, done, exited := w.fsw, w.done, w.exited
	w.fsw, w.done, w.exited, w.passes = nil, nil, nil, nil
	clear(w.pending)
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}

	close(done)
	closeErr := make(chan error, 1)
	go func() { closeErr <- fsw.Close() }()

	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-exited:
	case <-timer.C:
		w.logger.Warn("event loop did not stop in time", "timeout", timeout)
		return ErrStopTimeout
	}

	select {
	case err := <-closeErr:
		if err != nil {
			return fmt.Errorf("close fsnotify watcher: %w", err)
		}
	case <-timer.C:
		return ErrStopTimeout
	}
	return nil
}

// Dir returns the watched directory, or "" when stopped
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return ""
	}
	return w.dir
}

// Trigger queues a pass for path on the event loop, as if it had been
// written. It reports false when the watcher is stopped.
func (w *Watcher) Trigger(path string) bool {
	w.mu.Lock()
	passes, done := w.passes, w.done
	w.mu.Unlock()
	if passes == nil {
		return false
	}
	select {
	case passes <- path:
		return true
	case <-done:
		return false
	}
}

// watchLoop handles fsnotify events and queued passes until done is closed
// or the fsnotify channels close
func (w *Watcher) watchLoop(fsw *fsnotify.Watcher, passes <-chan string, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	for {
		select {
		case <-done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case path := <-passes:
			w.handle(path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// handleFSEvent filters a raw notification down to qualifying transcript writes
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if filepath.Ext(event.Name) != w.extension {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}
	w.handle(event.Name)
}

// handle runs the handler for path unless it is already in flight.
// It reports whether a pass was made.
func (w *Watcher) handle(path string) (ran bool) {
	w.mu.Lock()
	if _, busy := w.inFlight[path]; busy {
		w.pending[path] = struct{}{}
		w.mu.Unlock()
		return false
	}
	w.inFlight[path] = struct{}{}
	w.mu.Unlock()

	defer time.AfterFunc(w.debounce, func() { w.release(path) })

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("file handler panicked", "path", path, "panic", r)
		}
	}()
	ran = true
	w.handler(path)
	return ran
}

// release ends the window for path and, when notifications were absorbed
// during it, hands a trailing pass back to the event loop. It runs on a
// timer goroutine, so it never calls the handler itself.
func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	_, again := w.pending[path]
	delete(w.pending, path)
	w.mu.Unlock()

	if again {
		w.Trigger(path)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
