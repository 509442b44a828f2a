package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI based on the model state
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.err != nil {
		return m.theme.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderViewTabs())
	b.WriteString("\n")

	switch m.viewMode {
	case ViewFeed:
		b.WriteString(m.renderEventHeaders())
		b.WriteString("\n")
		if m.detailPanelOpen {
			listView := m.eventList.View()
			panelWidth := max(m.width-4-lipgloss.Width(listView)-2, 20)
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				listView, "  ", m.renderDetailPanel(panelWidth, max(m.height-9, 5))))
		} else {
			b.WriteString(m.eventList.View())
		}
	case ViewSessions:
		b.WriteString(m.renderSessionHeaders())
		b.WriteString("\n")
		b.WriteString(m.sessionList.View())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderHeader renders the top header bar
func (m Model) renderHeader() string {
	title := m.theme.Title.Render("Claude Activity Monitor")

	status := fmt.Sprintf("%d events | %d sessions", len(m.feed.events), len(m.sessions))
	if m.paused {
		status += " | paused"
	}
	statusText := m.theme.Status.Render(status)

	project := ""
	if m.source != nil {
		label := " [" + m.source.Label() + "]"
		if m.source.Watching() {
			project = m.theme.Active.Render(label)
		} else {
			project = m.theme.Inactive.Render(label + " stopped")
		}
	}

	spacing := max(m.width-lipgloss.Width(title)-lipgloss.Width(statusText)-lipgloss.Width(project)-4, 1)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", spacing),
		statusText,
		project,
	)
}

// renderViewTabs renders the tab bar for view modes
func (m Model) renderViewTabs() string {
	tabs := []struct {
		name string
		mode ViewMode
		key  string
	}{
		{"Feed", ViewFeed, "1"},
		{"Sessions", ViewSessions, "2"},
	}

	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%s %s", t.key, t.name)
		if t.mode == m.viewMode {
			rendered[i] = m.theme.ActiveTab.Render(label)
		} else {
			rendered[i] = m.theme.InactiveTab.Render(label)
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	gap := strings.Repeat("─", max(0, m.width-lipgloss.Width(row)-2))

	return row + m.theme.TabGap.Render(gap)
}

// renderHelp renders the help footer
func (m Model) renderHelp() string {
	var help []string

	switch m.viewMode {
	case ViewFeed:
		help = []string{"j/k:navigate", "enter:details", "p:pause", "c:clear", "h/l:switch view", "q:quit"}
	case ViewSessions:
		help = []string{"j/k:navigate", "h/l:switch view", "esc:back", "q:quit"}
	}

	return m.theme.Help.Render(strings.Join(help, " | "))
}

// renderEventHeaders renders column headers for the feed
func (m Model) renderEventHeaders() string {
	header := fmt.Sprintf("%s  %s  %s  %s",
		padRight("Time", EventTimestampWidth),
		padRight("Group", EventGroupWidth),
		padRight("Session", EventSessionWidth),
		"Activity")
	return m.theme.ColumnHeaderWidth(m.width - 4).Render(header)
}

// renderSessionHeaders renders column headers for the session list
func (m Model) renderSessionHeaders() string {
	return m.theme.ColumnHeaderWidth(m.width - 4).Render("  Project (branch)")
}

// padRight pads a string with spaces on the right to reach target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
