package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.updateListSizes(), nil

	case taskMsg:
		m.loop.RunTask(msg)
		m = m.refreshFeed()
		if m.viewMode == ViewSessions {
			m = m.refreshSessions()
		}
		return m, waitForTask(m.loop)

	case tickMsg:
		m.now = time.Time(msg)
		return m.refreshSessions(), tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextView), key.Matches(msg, m.keys.PrevView):
		if m.viewMode == ViewFeed {
			return m.setView(ViewSessions), nil
		}
		return m.setView(ViewFeed), nil

	case key.Matches(msg, m.keys.Feed):
		return m.setView(ViewFeed), nil

	case key.Matches(msg, m.keys.Sessions):
		return m.setView(ViewSessions), nil

	case key.Matches(msg, m.keys.Back):
		if m.detailPanelOpen {
			m.detailPanelOpen = false
			return m.updateListSizes(), nil
		}
		return m.setView(ViewFeed), nil

	case key.Matches(msg, m.keys.Detail):
		if m.viewMode == ViewFeed {
			m.detailPanelOpen = !m.detailPanelOpen
			return m.updateListSizes(), nil
		}

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		return m.refreshFeed(), nil

	case key.Matches(msg, m.keys.Clear):
		m.feed.events = nil
		m.feed.dirty = true
		return m.refreshFeed(), nil
	}

	// Navigation goes to the visible list
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewFeed:
		m.eventList, cmd = m.eventList.Update(msg)
	case ViewSessions:
		m.sessionList, cmd = m.sessionList.Update(msg)
	}
	return m, cmd
}

func (m Model) setView(mode ViewMode) Model {
	m.viewMode = mode
	if mode == ViewSessions {
		m.detailPanelOpen = false
		m = m.refreshSessions()
	}
	return m.updateListSizes()
}
