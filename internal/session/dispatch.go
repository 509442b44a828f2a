package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
)

// Callback receives classified events
type Callback func(Event)

// Executor runs functions on an execution context it owns, such as a UI
// event loop. Submit must not block; it returns an error when the context
// cannot take the function right now.
type Executor interface {
	Submit(fn func()) error
}

type subscriber struct {
	name     string
	callback Callback
	executor Executor
}

// SubscribeOption configures a registration
type SubscribeOption func(*subscriber)

// WithExecutor binds the callback to an execution context. The callback is
// never run inline; it is always handed to exec.
func WithExecutor(exec Executor) SubscribeOption {
	return func(s *subscriber) { s.executor = exec }
}

// WithName labels the callback in log output
func WithName(name string) SubscribeOption {
	return func(s *subscriber) { s.name = name }
}

// Bridge delivers events to the callbacks registered for their kind.
//
// Callbacks without an executor run synchronously on the dispatching
// goroutine (the watcher loop) and must return quickly: a slow one delays
// every later filesystem event. Callbacks with an executor are submitted to
// it; if it refuses, the callback is skipped for that event and a warning is
// logged. The order in which callbacks of one kind run is not specified.
type Bridge struct {
	mu     sync.RWMutex
	subs   map[EventKind][]subscriber
	logger *slog.Logger
}

// NewBridge creates a bridge with no subscribers
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = discardLogger()
	}
	return &Bridge{
		subs:   make(map[EventKind][]subscriber),
		logger: logger.With("component", "dispatch"),
	}
}

// Register adds a callback for kind. Several callbacks may share a kind.
func (b *Bridge) Register(kind EventKind, cb Callback, opts ...SubscribeOption) {
	s := subscriber{callback: cb}
	for _, opt := range opts {
		opt(&s)
	}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], s)
	b.mu.Unlock()

	b.logger.Debug("registered callback", "kind", kind, "name", s.name, "bound", s.executor != nil)
}

// Count returns how many callbacks are registered for kind
func (b *Bridge) Count(kind EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Dispatch delivers e to every callback registered for its kind. It never
// panics and never returns early because of a misbehaving subscriber.
func (b *Bridge) Dispatch(e Event) {
	b.mu.RLock()
	subs := b.subs[e.Kind]
	b.mu.RUnlock()

	for _, s := range subs {
		// Each subscriber gets its own payload map.
		ev := e
		ev.Payload = maps.Clone(e.Payload)

		if s.executor == nil {
			b.invoke(s, ev)
			continue
		}

		if err := s.executor.Submit(func() { b.invoke(s, ev) }); err != nil {
			b.logger.Warn("skipping callback, execution context unavailable",
				"kind", e.Kind, "name", s.name, "error", err)
		}
	}
}

func (b *Bridge) invoke(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("callback panicked", "kind", e.Kind, "name", s.name, "panic", r)
		}
	}()
	s.callback(e)
}

var (
	ErrLoopNotRunning = errors.New("loop is not running")
	ErrLoopFull       = errors.New("loop queue is full")
)

// Loop is an Executor backed by a task queue that its owner drains, either
// by running Run on a dedicated goroutine or by calling Drain from its own
// scheduler tick.
type Loop struct {
	tasks chan func()

	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewLoop creates a loop whose queue holds up to size pending tasks
func NewLoop(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Loop{
		tasks:  make(chan func(), size),
		logger: logger.With("component", "loop"),
	}
}

// Submit queues fn without blocking
func (l *Loop) Submit(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrLoopNotRunning
	}
	select {
	case l.tasks <- fn:
		return nil
	default:
		return ErrLoopFull
	}
}

// Open marks the loop as accepting work without starting Run. Owners that
// pump with Drain call Open when their scheduler comes up and Close when it
// goes away.
func (l *Loop) Open() {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
}

// Close stops accepting work. Tasks already queued are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	for {
		select {
		case <-l.tasks:
		default:
			return
		}
	}
}

// Running reports whether Submit currently accepts work
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Tasks exposes the queue for owners that integrate it into their own
// select loop. Received functions must be passed to RunTask.
func (l *Loop) Tasks() <-chan func() {
	return l.tasks
}

// Run drains the queue on the calling goroutine until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.Open()
	defer l.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			l.RunTask(fn)
		}
	}
}

// Drain runs every queued task without waiting for more and returns how many ran
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.tasks:
			l.RunTask(fn)
			n++
		default:
			return n
		}
	}
}

// RunTask runs fn, recovering from panics
func (l *Loop) RunTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	fn()
}
