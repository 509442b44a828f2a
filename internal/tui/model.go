package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"cc_activity_mon/internal/config"
	"cc_activity_mon/internal/session"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewFeed     ViewMode = iota // Live event feed
	ViewSessions                 // Sessions seen so far
)

// DefaultMaxEvents caps the feed length
const DefaultMaxEvents = 500

// queueSize bounds events waiting for the UI loop. Replaying history can
// burst far above the live rate.
const queueSize = 1024

// Source is the monitor as seen by the UI
type Source interface {
	RegisterCallback(kind session.EventKind, cb session.Callback, opts ...session.SubscribeOption)
	SortedSessions() []session.SessionState
	Label() string
	Watching() bool
}

// ModelOptions configures a Model
type ModelOptions struct {
	Source    Source
	Config    *config.Config
	MaxEvents int

	// Replay, when set, runs once after the UI loop opens to load
	// existing transcript content into the feed
	Replay func()
}

// feedState is written by event callbacks. Callbacks run through the UI
// loop, which only executes them inside Update, so no locking is needed.
type feedState struct {
	events  []session.Event // newest first
	dirty   bool
	max     int
	cfg     *config.Config
	dropped int
}

func (f *feedState) add(e session.Event) {
	if f.cfg.ShouldExclude(e) {
		return
	}
	f.events = append([]session.Event{e}, f.events...)
	if len(f.events) > f.max {
		f.dropped += len(f.events) - f.max
		f.events = f.events[:f.max]
	}
	f.dirty = true
}

// Model represents the application state
type Model struct {
	// Core state
	source   Source
	cfg      *config.Config
	loop     *session.Loop
	feed     *feedState
	replay   func()
	sessions []session.SessionState
	viewMode ViewMode
	paused   bool

	// UI components
	eventList   list.Model
	sessionList list.Model
	keys        keyMap
	theme       *Theme

	// Delegates (stored to update width)
	eventDelegate   *eventDelegate
	sessionDelegate *sessionDelegate

	// Detail panel state
	detailPanelOpen bool

	// UI dimensions
	width  int
	height int

	now time.Time

	// Error state
	err error
}

// NewModel creates a Model subscribed to every event kind of opts.Source
func NewModel(opts ModelOptions) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}

	theme := NewTheme(cfg)
	eventDel := newEventDelegate(theme)
	sessionDel := newSessionDelegate(theme)

	m := Model{
		source:          opts.Source,
		cfg:             cfg,
		loop:            session.NewLoop(queueSize, nil),
		feed:            &feedState{max: maxEvents, cfg: cfg},
		replay:          opts.Replay,
		viewMode:        ViewFeed,
		keys:            newKeyMap(),
		theme:           theme,
		eventDelegate:   eventDel,
		sessionDelegate: sessionDel,
		now:             time.Now(),
	}

	m.eventList = newList(eventDel)
	m.sessionList = newList(sessionDel)

	if m.source != nil {
		feed := m.feed
		for _, kind := range session.AllKinds() {
			m.source.RegisterCallback(kind, feed.add,
				session.WithExecutor(m.loop), session.WithName("tui"))
		}
	}
	return m
}

func newList(d list.ItemDelegate) list.Model {
	l := list.New([]list.Item{}, d, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// Init implements tea.Model. It opens the UI loop so bound callbacks are
// accepted from here on.
func (m Model) Init() tea.Cmd {
	m.loop.Open()
	cmds := []tea.Cmd{waitForTask(m.loop), tickCmd()}
	if m.replay != nil {
		replay := m.replay
		cmds = append(cmds, func() tea.Msg {
			replay()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// Message types
type (
	taskMsg func()
	tickMsg time.Time
)

// waitForTask delivers the next queued callback to Update
func waitForTask(loop *session.Loop) tea.Cmd {
	return func() tea.Msg {
		return taskMsg(<-loop.Tasks())
	}
}

// tickCmd returns a command that ticks every 30 seconds to refresh relative times
func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshFeed rebuilds the event list when callbacks changed the feed
func (m Model) refreshFeed() Model {
	if !m.feed.dirty || m.paused {
		return m
	}
	m.feed.dirty = false

	// Stay on the newest event unless the user scrolled away
	wasAtTop := m.eventList.Index() == 0
	previousCount := len(m.eventList.Items())

	items := make([]list.Item, len(m.feed.events))
	for i, e := range m.feed.events {
		items[i] = eventItem{event: e}
	}
	m.eventList.SetItems(items)

	if wasAtTop || previousCount == 0 {
		m.eventList.Select(0)
	} else if added := len(items) - previousCount; added > 0 {
		m.eventList.Select(min(m.eventList.Index()+added, len(items)-1))
	}
	return m
}

// refreshSessions reloads the session list from the source
func (m Model) refreshSessions() Model {
	if m.source == nil {
		return m
	}
	m.sessions = m.source.SortedSessions()
	items := make([]list.Item, len(m.sessions))
	for i, s := range m.sessions {
		items[i] = sessionItem{state: s, now: m.now}
	}
	m.sessionList.SetItems(items)
	return m
}

// updateListSizes updates list dimensions based on terminal size
func (m Model) updateListSizes() Model {
	// Reserve space for header (2), tabs (2), column headers (1), help (2), margins (2)
	listHeight := max(m.height-9, 5)
	listWidth := max(m.width-4, 20)

	eventWidth := listWidth
	if m.viewMode == ViewFeed && m.detailPanelOpen {
		eventWidth = int(float64(listWidth) * 0.58)
	}

	m.eventDelegate.SetWidth(eventWidth)
	m.sessionDelegate.SetWidth(listWidth)

	m.eventList.SetSize(eventWidth, listHeight)
	m.sessionList.SetSize(listWidth, listHeight)
	return m
}

// SelectedEvent returns the highlighted event in the feed
func (m Model) SelectedEvent() (session.Event, bool) {
	item, ok := m.eventList.SelectedItem().(eventItem)
	if !ok {
		return session.Event{}, false
	}
	return item.event, true
}

// Events returns the feed, newest first
func (m Model) Events() []session.Event {
	return m.feed.events
}

// Close stops accepting callbacks; queued ones are discarded
func (m Model) Close() {
	m.loop.Close()
}
