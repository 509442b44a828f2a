package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownSessionID is used for events whose entry carried no sessionId
const UnknownSessionID = "unknown"

// EventKind is the closed set of activity types the classifier can produce
type EventKind int

const (
	UserPrompt EventKind = iota
	AssistantResponse
	FileRead
	FileWrite
	FileEdit
	BashCommand
	WebFetch
)

var kindNames = [...]string{
	UserPrompt:        "user_prompt",
	AssistantResponse: "assistant_response",
	FileRead:          "file_read",
	FileWrite:         "file_write",
	FileEdit:          "file_edit",
	BashCommand:       "bash_command",
	WebFetch:          "web_fetch",
}

// ErrUnknownKind is returned by ParseEventKind for names outside the enumeration
var ErrUnknownKind = errors.New("unknown event kind")

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds
func (k EventKind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// MarshalText encodes the kind as its snake_case name
func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseEventKind maps a name like "bash_command" (or "BashCommand") to its kind
func ParseEventKind(name string) (EventKind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for i, n := range kindNames {
		if n == normalized || strings.ReplaceAll(n, "_", "") == normalized {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// AllKinds returns every event kind in declaration order
func AllKinds() []EventKind {
	kinds := make([]EventKind, len(kindNames))
	for i := range kindNames {
		kinds[i] = EventKind(i)
	}
	return kinds
}

// Event is a single classified activity. It is built once by the classifier
// and treated as read-only afterwards.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"sessionId"`
	Payload   map[string]any `json:"payload"`
	Summary   string         `json:"summary"`
}

// Field returns the payload value for key, or "" if it is missing or not a string
func (e Event) Field(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// Label is the name used for tool-group matching: the Bash permission
// pattern when there is one, otherwise the kind name.
func (e Event) Label() string {
	if p := e.Field("pattern"); p != "" {
		return p
	}
	return e.Kind.String()
}

// SessionState tracks what is known about one session id
type SessionState struct {
	ID           string    `json:"id"`
	LastActivity time.Time `json:"lastActivity"`
	CWD          string    `json:"cwd,omitempty"`
	GitBranch    string    `json:"gitBranch,omitempty"`
}

// merge folds an update into s. Empty fields in the update never erase
// known values, and LastActivity only moves forward.
func (s *SessionState) merge(update SessionState) {
	if update.CWD != "" {
		s.CWD = update.CWD
	}
	if update.GitBranch != "" {
		s.GitBranch = update.GitBranch
	}
	if update.LastActivity.After(s.LastActivity) {
		s.LastActivity = update.LastActivity
	}
}
