package session

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Options configures a Monitor. Zero values select the defaults.
type Options struct {
	Extension   string        // transcript extension, default ".jsonl"
	Debounce    time.Duration // in-flight window per path, default 500ms
	StopTimeout time.Duration // bounded wait in StopMonitoring, default 2s
	SkipHistory bool          // prime existing files so only new lines are reported
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return o
}

// Monitor owns the whole pipeline for one session directory: the watcher,
// per-file tail positions, the session registry and the subscribers.
//
// It is Stopped until StartMonitoring succeeds and Watching until
// StopMonitoring. Sessions seen during a run remain available after it stops.
type Monitor struct {
	opts   Options
	logger *slog.Logger

	tailer   *Tailer
	bridge   *Bridge
	sessions *Registry

	mu      sync.Mutex
	watcher *Watcher
	dir     string
	label   string
}

// NewMonitor creates a stopped monitor
func NewMonitor(opts Options) *Monitor {
	opts = opts.withDefaults()
	return &Monitor{
		opts:     opts,
		logger:   opts.Logger.With("component", "monitor"),
		tailer:   NewTailer(),
		bridge:   NewBridge(opts.Logger),
		sessions: NewRegistry(),
	}
}

// RegisterCallback subscribes cb to events of kind
func (m *Monitor) RegisterCallback(kind EventKind, cb Callback, opts ...SubscribeOption) {
	m.bridge.Register(kind, cb, opts...)
	m.logger.Info("registered callback", "kind", kind)
}

// StartMonitoring begins watching dir. label is used for display only and
// defaults to the directory name. Starting on the directory already being
// watched is a no-op; starting on another one replaces the current watch.
// A missing directory is logged and returned, and the monitor stays stopped.
func (m *Monitor) StartMonitoring(dir, label string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if label == "" {
		label = filepath.Base(abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher != nil {
		if m.dir == abs {
			return nil
		}
		_ = m.stopLocked()
	}

	if m.opts.SkipHistory {
		m.primeDir(abs)
	}

	w := NewWatcher(func(path string) { m.ProcessFile(path) },
		WithExtension(m.opts.Extension),
		WithDebounce(m.opts.Debounce),
		WithLogger(m.opts.Logger),
	)
	if err := w.Start(abs); err != nil {
		m.logger.Error("cannot start monitoring", "dir", abs, "error", err)
		return err
	}

	m.watcher = w
	m.dir = abs
	m.label = label
	m.logger.Info("monitoring active", "project", label, "dir", abs)
	return nil
}

// StopMonitoring stops accepting filesystem notifications. It waits a bounded
// time for an in-progress pass and does not interrupt a running dispatch.
func (m *Monitor) StopMonitoring() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Monitor) stopLocked() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Stop(m.opts.StopTimeout)
	if err != nil {
		m.logger.Warn("error stopping watcher", "dir", m.dir, "error", err)
	} else {
		m.logger.Info("stopped monitoring", "dir", m.dir)
	}
	m.watcher = nil
	m.dir = ""
	return err
}

// Watching reports whether the monitor is in the Watching state
func (m *Monitor) Watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watcher != nil
}

// Dir returns the directory being watched, or "" when stopped
func (m *Monitor) Dir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

// Label returns the display label of the most recent StartMonitoring
func (m *Monitor) Label() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

// ActiveSessions returns a copy of every session seen so far. Changing the
// returned map has no effect on the monitor.
func (m *Monitor) ActiveSessions() map[string]SessionState {
	return m.sessions.Snapshot()
}

// SortedSessions returns a copy of every session, most recently active first
func (m *Monitor) SortedSessions() []SessionState {
	return m.sessions.Sorted()
}

// ProcessFile runs one tail cycle for path: new lines are decoded,
// classified, merged into the session registry and dispatched. Lines that
// fail to decode are skipped but still count as consumed. It returns the
// number of lines consumed. The watcher calls it on its own goroutine; a
// direct call runs on the caller's.
func (m *Monitor) ProcessFile(path string) int {
	lines, err := m.tailer.ReadNewLines(path)
	if err != nil {
		m.logger.Warn("cannot read session file", "path", path, "error", err)
		return 0
	}

	for _, line := range lines {
		raw := bytes.TrimSpace([]byte(line))
		if len(raw) == 0 {
			continue
		}

		entry, err := ParseEntry(raw)
		if err != nil {
			m.logger.Warn("invalid JSON in session file", "path", path, "line", truncate(line, 100))
			continue
		}

		res := Classify(&entry)
		if res.Session != nil {
			m.sessions.Merge(*res.Session)
		}
		for _, e := range res.Events {
			m.bridge.Dispatch(e)
		}
	}

	return len(lines)
}

// Scan queues a tail cycle on the watcher goroutine for every transcript
// already in the watched directory, in name order, and returns how many
// were queued. Used to catch up on existing content without waiting for a
// write. Must not be called from a callback running on the watcher goroutine.
func (m *Monitor) Scan() int {
	m.mu.Lock()
	w, dir := m.watcher, m.dir
	m.mu.Unlock()
	if w == nil {
		return 0
	}

	queued := 0
	for _, path := range m.transcripts(dir) {
		if !w.Trigger(path) {
			break
		}
		queued++
	}
	return queued
}

// primeDir marks existing transcripts in dir as already read
func (m *Monitor) primeDir(dir string) {
	for _, path := range m.transcripts(dir) {
		if err := m.tailer.Prime(path); err != nil {
			m.logger.Warn("cannot prime session file", "path", path, "error", err)
		}
	}
}

// transcripts lists the regular files in dir with the watched extension
func (m *Monitor) transcripts(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+m.opts.Extension))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	files := matches[:0]
	for _, path := range matches {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}

// String describes the monitor state for logs
func (m *Monitor) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher == nil {
		return "monitor(stopped)"
	}
	return fmt.Sprintf("monitor(%s: %s)", m.label, m.dir)
}
