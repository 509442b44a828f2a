package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"cc_activity_mon/internal/session"
)

// Column widths shared by delegates and headers
const (
	EventTimestampWidth = 8
	EventGroupWidth     = 12
	EventSessionWidth   = 8
)

// ============================================================================
// Event Item
// ============================================================================

// eventItem wraps an Event for the list component
type eventItem struct {
	event session.Event
}

func (i eventItem) FilterValue() string { return i.event.Summary }
func (i eventItem) Title() string       { return i.event.Kind.String() }
func (i eventItem) Description() string { return i.event.Summary }

// eventDelegate renders event items
type eventDelegate struct {
	theme *Theme
	width int
}

func newEventDelegate(theme *Theme) *eventDelegate {
	return &eventDelegate{theme: theme}
}

func (d *eventDelegate) SetWidth(w int) { d.width = w }

func (d *eventDelegate) Height() int                             { return 1 }
func (d *eventDelegate) Spacing() int                            { return 0 }
func (d *eventDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *eventDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(eventItem)
	if !ok {
		return
	}

	style, group := d.theme.ForEvent(i.event)
	if index == m.Index() {
		style = style.Background(d.theme.selectedBg)
	}

	timestamp := d.theme.Timestamp.Render(i.event.Timestamp.Local().Format("15:04:05"))
	groupCol := style.Render(padRight(group, EventGroupWidth))
	sessionCol := d.theme.Muted.Render(padRight(shortID(i.event.SessionID), EventSessionWidth))

	used := EventTimestampWidth + EventGroupWidth + EventSessionWidth + 6
	summary := truncate(i.event.Summary, max(10, d.width-used))

	fmt.Fprintf(w, "%s  %s  %s  %s", timestamp, groupCol, sessionCol, style.Render(summary))
}

// ============================================================================
// Session Item
// ============================================================================

// sessionItem wraps a SessionState for the list component
type sessionItem struct {
	state session.SessionState
	now   time.Time
}

func (i sessionItem) FilterValue() string { return i.state.ID }
func (i sessionItem) Title() string       { return projectName(i.state) }
func (i sessionItem) Description() string {
	return fmt.Sprintf("%s | %s", i.state.ID, humanize.RelTime(i.state.LastActivity, i.now, "ago", "from now"))
}

// sessionDelegate renders session items
type sessionDelegate struct {
	theme *Theme
	width int
}

func newSessionDelegate(theme *Theme) *sessionDelegate {
	return &sessionDelegate{theme: theme}
}

func (d *sessionDelegate) SetWidth(w int) { d.width = w }

func (d *sessionDelegate) Height() int                             { return 2 }
func (d *sessionDelegate) Spacing() int                            { return 1 }
func (d *sessionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(sessionItem)
	if !ok {
		return
	}

	// Sessions active within the last few minutes get the indicator
	var indicator string
	nameStyle := d.theme.Inactive
	if i.now.Sub(i.state.LastActivity) < activeWindow {
		indicator = d.theme.Active.Render("● ")
		nameStyle = d.theme.Active
	} else {
		indicator = d.theme.Inactive.Render("  ")
	}
	if index == m.Index() {
		nameStyle = d.theme.Selected
	}

	branch := ""
	if i.state.GitBranch != "" {
		branch = " (" + i.state.GitBranch + ")"
	}
	name := nameStyle.Render(projectName(i.state) + branch)
	desc := d.theme.Muted.Render("  " + truncate(i.Description(), max(10, d.width-2)))

	fmt.Fprintf(w, "%s%s\n%s", indicator, name, desc)
}

// ============================================================================
// Helper Functions
// ============================================================================

// activeWindow is how recent the last activity must be to count as active
const activeWindow = 5 * time.Minute

func projectName(s session.SessionState) string {
	if s.CWD == "" {
		return shortID(s.ID)
	}
	return filepath.Base(s.CWD)
}

// shortID keeps the first block of a session UUID
func shortID(id string) string {
	if len(id) > EventSessionWidth {
		return id[:EventSessionWidth]
	}
	return id
}

// truncate shortens a string to max runes with ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
