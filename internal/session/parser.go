package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	textSummaryLen    = 80
	commandSummaryLen = 50
)

// listingMarkers open the Read tool's cat -n style output
var listingMarkers = []string{"     1→", "     1\t"}

// Entry is a single decoded line of a session transcript
type Entry struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	UUID      string   `json:"uuid"`
	SessionID string   `json:"sessionId"`
	GitBranch string   `json:"gitBranch"`
	CWD       string   `json:"cwd"`
	Message   *Message `json:"message,omitempty"`
}

// Message is the message field of an entry
type Message struct {
	Role    string        `json:"role"`
	Content []ContentItem `json:"-"`
}

// UnmarshalJSON accepts content either as a list of items or as a bare
// string, which user prompts typed at the terminal are stored as.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = nil

	content := bytes.TrimSpace(raw.Content)
	switch {
	case len(content) == 0, bytes.Equal(content, []byte("null")):
	case content[0] == '"':
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return err
		}
		m.Content = []ContentItem{{Type: "text", Text: text}}
	case content[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(content, &items); err != nil {
			return err
		}
		for _, item := range items {
			var ci ContentItem
			// Non-object items are ignored rather than failing the whole entry.
			if err := json.Unmarshal(item, &ci); err == nil {
				m.Content = append(m.Content, ci)
			}
		}
	}
	return nil
}

// ContentItem is one element of message.content
type ContentItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        string          `json:"id,omitempty"`          // tool_use ID
	Input     json.RawMessage `json:"input,omitempty"`       // tool_use arguments
	ToolUseID string          `json:"tool_use_id,omitempty"` // references tool_use ID in tool_result
	Content   json.RawMessage `json:"content,omitempty"`     // tool_result content
}

// toolInput holds the tool_use arguments the classifier cares about
type toolInput struct {
	FilePath    string `json:"file_path"`
	Command     string `json:"command"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Result is what one entry contributes: zero or more events and, when the
// entry identifies its session, a session update.
type Result struct {
	Events  []Event
	Session *SessionState
}

// ParseEntry decodes one JSONL line
func ParseEntry(line []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// Classify turns an entry into events. It performs no I/O and returns the
// same result for the same input. Entries without a usable timestamp yield
// nothing at all.
func Classify(e *Entry) Result {
	ts, ok := parseTimestamp(e.Timestamp)
	if !ok {
		return Result{}
	}

	var res Result
	if e.SessionID != "" {
		res.Session = &SessionState{
			ID:           e.SessionID,
			LastActivity: ts,
			CWD:          e.CWD,
			GitBranch:    e.GitBranch,
		}
	}

	if e.Message == nil {
		return res
	}

	c := classifier{ts: ts, sessionID: firstNonEmpty(e.SessionID, UnknownSessionID)}
	switch e.Type {
	case "user":
		for i := range e.Message.Content {
			c.userItem(&e.Message.Content[i])
		}
	case "assistant":
		for i := range e.Message.Content {
			c.assistantItem(&e.Message.Content[i])
		}
	}
	res.Events = c.events
	return res
}

// classifier accumulates events for a single entry
type classifier struct {
	ts        time.Time
	sessionID string
	events    []Event
}

func (c *classifier) emit(kind EventKind, payload map[string]any, summary string) {
	c.events = append(c.events, Event{
		Kind:      kind,
		Timestamp: c.ts,
		SessionID: c.sessionID,
		Payload:   payload,
		Summary:   summary,
	})
}

func (c *classifier) userItem(item *ContentItem) {
	switch item.Type {
	case "text":
		c.emit(UserPrompt,
			map[string]any{"prompt": item.Text},
			"User: "+truncate(item.Text, textSummaryLen))
	case "tool_result":
		c.toolResult(item)
	}
}

func (c *classifier) assistantItem(item *ContentItem) {
	switch item.Type {
	case "text":
		c.emit(AssistantResponse,
			map[string]any{"response": item.Text},
			"Claude: "+truncate(item.Text, textSummaryLen))
	case "tool_use":
		c.toolUse(item)
	}
}

// toolResult recognizes file listings and shell output among tool results
func (c *classifier) toolResult(item *ContentItem) {
	var text string
	isString := json.Unmarshal(item.Content, &text) == nil

	if isString && hasListingMarker(text) {
		numLines := 0
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) != "" {
				numLines++
			}
		}
		c.emit(FileRead,
			map[string]any{"content": text, "num_lines": numLines, "tool_use_id": item.ToolUseID},
			fmt.Sprintf("Read file (%d lines)", numLines))
		return
	}

	raw := string(item.Content)
	if strings.Contains(raw, "stdout") || strings.Contains(raw, "stderr") {
		c.emit(BashCommand,
			map[string]any{"output": extractResultText(item.Content), "tool_use_id": item.ToolUseID},
			"Bash command executed")
	}
}

// toolUse maps known tool names to events. Other tools are ignored.
func (c *classifier) toolUse(item *ContentItem) {
	var input toolInput
	if len(item.Input) > 0 {
		// A malformed input still identifies the tool; fields stay empty.
		_ = json.Unmarshal(item.Input, &input)
	}

	payload := map[string]any{"tool": item.Name, "tool_use_id": item.ID}

	switch item.Name {
	case "Read":
		payload["file_path"] = input.FilePath
		c.emit(FileRead, payload, "Reading: "+baseName(input.FilePath))
	case "Write":
		payload["file_path"] = input.FilePath
		c.emit(FileWrite, payload, "Writing: "+baseName(input.FilePath))
	case "Edit":
		payload["file_path"] = input.FilePath
		c.emit(FileEdit, payload, "Editing: "+baseName(input.FilePath))
	case "Bash":
		payload["command"] = input.Command
		payload["pattern"] = ExtractPattern("Bash", input.Command)
		if input.Description != "" {
			payload["description"] = input.Description
		}
		c.emit(BashCommand, payload, "Running: "+truncate(input.Command, commandSummaryLen))
	case "WebFetch":
		payload["url"] = input.URL
		c.emit(WebFetch, payload, "Fetching: "+input.URL)
	}
}

// timestampLayouts are tried in order; zone-less forms are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func hasListingMarker(s string) bool {
	for _, m := range listingMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

// baseName is the last path element, or "" for an empty path
func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// firstNonEmpty returns the first non-empty string from the arguments
func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}

// truncate cuts s to maxLen runes, adding "..." when something was dropped
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// extractResultText extracts readable text from tool_result content
func extractResultText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var simpleStr string
	if err := json.Unmarshal(content, &simpleStr); err == nil {
		return simpleStr
	}

	var items []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &items); err == nil {
		var parts []string
		for _, item := range items {
			if item.Type == "text" && item.Text != "" {
				parts = append(parts, item.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	return truncate(string(content), 2000)
}
