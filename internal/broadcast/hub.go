// Package broadcast streams classified session events to websocket clients.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cc_activity_mon/internal/session"
)

const (
	clientBuffer = 64
	queueSize    = 256
	writeWait    = 5 * time.Second
)

// Subscriber is the part of the monitor the hub registers with
type Subscriber interface {
	RegisterCallback(kind session.EventKind, cb session.Callback, opts ...session.SubscribeOption)
}

// SessionSource provides the sessions sent to newly connected clients
type SessionSource interface {
	SortedSessions() []session.SessionState
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, clientBuffer)}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub fans events out to websocket clients. Event callbacks are bound to the
// hub's own loop, so nothing is sent until Run is active.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool

	sessions SessionSource
	loop     *session.Loop
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a hub that greets clients with sessions from src
func NewHub(src SessionSource, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{
		clients:  make(map[*client]bool),
		sessions: src,
		loop:     session.NewLoop(queueSize, logger),
		logger:   logger.With("component", "broadcast"),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}
	return h
}

// Subscribe registers the hub for every event kind
func (h *Hub) Subscribe(s Subscriber) {
	for _, kind := range session.AllKinds() {
		s.RegisterCallback(kind, h.publish, session.WithExecutor(h.loop), session.WithName("broadcast"))
	}
}

// Run processes events until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	err := h.loop.Run(ctx)

	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	return err
}

// Running reports whether the hub accepts events
func (h *Hub) Running() bool {
	return h.loop.Running()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler routes GET /ws to the hub
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", h)
	return mux
}

// ServeHTTP upgrades the request and streams messages until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.Running() {
		http.Error(w, "hub is not running", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(conn)
	go c.writePump()
	if !h.addClient(c) {
		// Run returned between the check and the upgrade
		close(c.send)
		return
	}
	h.logger.Info("client connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.removeClient(c)
			h.logger.Info("client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ListenAndServe serves the hub on addr until ctx is cancelled
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	h.logger.Info("websocket hub listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// addClient registers c and queues the snapshot. It refuses once the hub
// loop has stopped, since nothing would ever close c.send.
func (h *Hub) addClient(c *client) bool {
	data, err := json.Marshal(Message{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Sessions: h.sessions.SortedSessions()},
	})
	if err != nil {
		h.logger.Error("marshal snapshot", "error", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loop.Running() {
		return false
	}
	h.clients[c] = true
	if data != nil {
		c.send <- data // fresh buffer, never full
	}
	return true
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// publish runs on the hub loop
func (h *Hub) publish(e session.Event) {
	data, err := json.Marshal(Message{Type: MsgEvent, Payload: e})
	if err != nil {
		h.logger.Error("marshal event", "kind", e.Kind, "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the request host
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
