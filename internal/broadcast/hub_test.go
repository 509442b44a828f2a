package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cc_activity_mon/internal/session"
)

const bashLine = `{"type":"assistant","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls -la"}}]}}`

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// startHub runs a hub subscribed to a fresh monitor
func startHub(t *testing.T) (*Hub, *session.Monitor, *httptest.Server) {
	t.Helper()
	m := session.NewMonitor(session.Options{})
	hub := NewHub(m, nil)
	hub.Subscribe(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	waitFor(t, hub.Running)

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return hub, m, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg rawMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestHubSnapshotThenEvents(t *testing.T) {
	hub, m, srv := startHub(t)
	path := filepath.Join(t.TempDir(), "s1.jsonl")

	appendLine(t, path, bashLine)
	m.ProcessFile(path)

	conn := dial(t, srv)

	snap := readMessage(t, conn)
	if snap.Type != MsgSnapshot {
		t.Fatalf("first message type = %q, want snapshot", snap.Type)
	}
	var sp SnapshotPayload
	if err := json.Unmarshal(snap.Payload, &sp); err != nil {
		t.Fatal(err)
	}
	if len(sp.Sessions) != 1 || sp.Sessions[0].ID != "s1" {
		t.Errorf("snapshot sessions = %+v, want [s1]", sp.Sessions)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	appendLine(t, path, bashLine)
	m.ProcessFile(path)

	msg := readMessage(t, conn)
	if msg.Type != MsgEvent {
		t.Fatalf("message type = %q, want event", msg.Type)
	}
	var e session.Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		t.Fatal(err)
	}
	if e.Kind != session.BashCommand || e.SessionID != "s1" || !strings.Contains(e.Summary, "ls -la") {
		t.Errorf("event = %+v", e)
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub, _, srv := startHub(t)

	conn := dial(t, srv)
	readMessage(t, conn)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, _, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("dial with foreign origin should fail")
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub(session.NewMonitor(session.Options{}), nil)

	slow := &client{send: make(chan []byte, 1)}
	fast := &client{send: make(chan []byte, 4)}
	hub.clients[slow] = true
	hub.clients[fast] = true

	hub.broadcast([]byte("one"))
	hub.broadcast([]byte("two"))

	if hub.ClientCount() != 1 || !hub.clients[fast] {
		t.Fatalf("clients after overflow = %d, want only the fast one", hub.ClientCount())
	}
	if _, open := <-slow.send; !open {
		t.Fatal("slow client lost its queued message")
	}
	if _, open := <-slow.send; open {
		t.Error("slow client channel not closed")
	}
	if len(fast.send) != 2 {
		t.Errorf("fast client has %d messages, want 2", len(fast.send))
	}
}

func TestEventsDroppedWhenHubStopped(t *testing.T) {
	m := session.NewMonitor(session.Options{})
	hub := NewHub(m, nil)
	hub.Subscribe(m)

	c := &client{send: make(chan []byte, 4)}
	hub.clients[c] = true

	path := filepath.Join(t.TempDir(), "s1.jsonl")
	appendLine(t, path, bashLine)
	m.ProcessFile(path)

	if len(c.send) != 0 {
		t.Errorf("event delivered while hub loop was not running")
	}
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "localhost:8080", true},
		{"http://localhost:8080", "localhost:8080", true},
		{"http://other:8080", "localhost:8080", false},
		{"::bad", "localhost:8080", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := sameOrigin(r); got != tt.want {
			t.Errorf("sameOrigin(%q, %q) = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}

func TestHubRefusesClientsAfterRun(t *testing.T) {
	m := session.NewMonitor(session.Options{})
	hub := NewHub(m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	waitFor(t, hub.Running)
	cancel()
	<-done

	c := &client{send: make(chan []byte, 1)}
	if hub.addClient(c) {
		t.Error("addClient() accepted a client after Run returned")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail once the hub has stopped")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
}
