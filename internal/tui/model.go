package tui

import (
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cc_session_mgr/internal/logging"
	"cc_session_mgr/internal/session"
)

var tuiLog = logging.ForComponent(logging.CompTUI)

// refreshInterval re-reads the active view so relative times stay current
const refreshInterval = 30 * time.Second

// ViewMode represents the current view
type ViewMode int

const (
	ViewSessions ViewMode = iota // Session summaries, newest first
	ViewProjects                 // Project directories
	ViewStats                    // Token usage by day
	ViewSearch                   // Search across transcripts and history
	viewCount
)

// Store is the read side of the session index the UI depends on
type Store interface {
	ListProjects() []session.Project
	ListSessions(projectID string, limit int) []session.SessionSummary
	GetSession(project, sessionID string) (*session.SessionDetail, bool)
	Stats() *session.Stats
	SearchAll(query string, limit int) []session.SearchResult
	FindProject(query string) (string, bool)
	Subscribe() (<-chan session.Event, func())
}

// ModelOptions configures the UI
type ModelOptions struct {
	Store         Store
	SessionsLimit int
	SearchLimit   int
	Theme         string
}

// errSessionNotFound is shown in the detail panel when a transcript vanished
var errSessionNotFound = errors.New("session not found")

// Model represents the application state
type Model struct {
	store         Store
	sessionsLimit int
	searchLimit   int
	viewMode      ViewMode

	// Loaded data
	sessions      []session.SessionSummary
	projects      []session.Project
	stats         *session.Stats
	results       []session.SearchResult
	projectFilter string // Encoded project name the session list is narrowed to
	lastQuery     string

	// UI components
	sessionList list.Model
	projectList list.Model
	dayList     list.Model
	resultList  list.Model
	searchInput textinput.Model

	// Delegates (stored to update width)
	sessionDelegate *sessionDelegate
	projectDelegate *projectDelegate
	dayDelegate     *dayDelegate
	resultDelegate  *resultDelegate

	// Detail panel state
	detailPanelOpen bool
	detailProject   string
	detailSessionID string
	detail          *session.SessionDetail
	loadingDetail   bool
	detailError     error
	detailOffset    int // First transcript line shown

	// Change notifications
	events      <-chan session.Event
	unsubscribe func()

	// UI dimensions
	width  int
	height int

	// Error state
	err error
}

// NewModel creates a new Model with initialized state
func NewModel(opts ModelOptions) Model {
	SetTheme(opts.Theme)

	sessionDel := newSessionDelegate()
	projectDel := newProjectDelegate()
	dayDel := newDayDelegate()
	resultDel := newResultDelegate()

	m := Model{
		store:           opts.Store,
		sessionsLimit:   opts.SessionsLimit,
		searchLimit:     opts.SearchLimit,
		viewMode:        ViewSessions,
		sessionDelegate: sessionDel,
		projectDelegate: projectDel,
		dayDelegate:     dayDel,
		resultDelegate:  resultDel,
		unsubscribe:     func() {},
	}
	if m.sessionsLimit <= 0 {
		m.sessionsLimit = 50
	}
	if m.searchLimit <= 0 {
		m.searchLimit = 20
	}
	if m.store == nil {
		m.err = errors.New("no session store configured")
	} else {
		m.events, m.unsubscribe = m.store.Subscribe()
	}

	m.sessionList = newList(sessionDel)
	m.projectList = newList(projectDel)
	m.dayList = newList(dayDel)
	m.resultList = newList(resultDel)

	m.searchInput = textinput.New()
	m.searchInput.Placeholder = "search transcripts and history"
	m.searchInput.Prompt = "/ "
	m.searchInput.CharLimit = 256

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

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return tea.Batch(
		m.loadSessionsCmd(),
		m.loadProjectsCmd(),
		m.loadStatsCmd(),
		m.waitEventCmd(),
		m.tickCmd(),
	)
}

// Close releases the change subscription
func (m Model) Close() {
	m.unsubscribe()
}

// Message types
type (
	sessionsLoadedMsg struct {
		project  string
		sessions []session.SessionSummary
	}
	projectsLoadedMsg []session.Project
	statsLoadedMsg    *session.Stats
	searchResultsMsg  struct {
		query   string
		results []session.SearchResult
	}
	indexEventMsg   session.Event
	tickMsg         time.Time
	detailLoadedMsg *session.SessionDetail
	detailErrorMsg  struct{ error }
)

func (m Model) loadSessionsCmd() tea.Cmd {
	store, project, limit := m.store, m.projectFilter, m.sessionsLimit
	return func() tea.Msg {
		return sessionsLoadedMsg{project: project, sessions: store.ListSessions(project, limit)}
	}
}

func (m Model) loadProjectsCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return projectsLoadedMsg(store.ListProjects())
	}
}

func (m Model) loadStatsCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return statsLoadedMsg(store.Stats())
	}
}

func (m Model) searchCmd(query string) tea.Cmd {
	store, limit := m.store, m.searchLimit
	return func() tea.Msg {
		return searchResultsMsg{query: query, results: store.SearchAll(query, limit)}
	}
}

// waitEventCmd returns a command that waits for the next index change
func (m Model) waitEventCmd() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		ev, ok := <-events
		if !ok {
			return nil
		}
		return indexEventMsg(ev)
	}
}

// tickCmd returns a command that ticks periodically to refresh the active view
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadDetailCmd asynchronously loads a full transcript
func (m Model) loadDetailCmd(project, sessionID string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		detail, ok := store.GetSession(project, sessionID)
		if !ok {
			return detailErrorMsg{errSessionNotFound}
		}
		return detailLoadedMsg(detail)
	}
}

// refreshCmd reloads whatever the current view shows
func (m Model) refreshCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	switch m.viewMode {
	case ViewProjects:
		return m.loadProjectsCmd()
	case ViewStats:
		return m.loadStatsCmd()
	case ViewSearch:
		if m.lastQuery != "" {
			return m.searchCmd(m.lastQuery)
		}
		return nil
	default:
		return m.loadSessionsCmd()
	}
}

// updateSessionList rebuilds the session list items
func (m Model) updateSessionList() Model {
	items := make([]list.Item, len(m.sessions))
	for i := range m.sessions {
		items[i] = sessionItem{summary: m.sessions[i]}
	}
	m.sessionList.SetItems(items)
	return m
}

// updateProjectList rebuilds the project list items
func (m Model) updateProjectList() Model {
	items := make([]list.Item, len(m.projects))
	for i := range m.projects {
		items[i] = projectItem{project: m.projects[i]}
	}
	m.projectList.SetItems(items)
	return m
}

// updateDayList rebuilds the per-day usage rows
func (m Model) updateDayList() Model {
	if m.stats == nil {
		m.dayList.SetItems([]list.Item{})
		return m
	}
	var peak int64
	items := make([]list.Item, len(m.stats.ByDay))
	for i, d := range m.stats.ByDay {
		items[i] = dayItem{day: d}
		if d.Tokens > peak {
			peak = d.Tokens
		}
	}
	m.dayDelegate.SetPeak(peak)
	m.dayList.SetItems(items)
	return m
}

// updateResultList rebuilds the search result items
func (m Model) updateResultList() Model {
	items := make([]list.Item, len(m.results))
	for i := range m.results {
		items[i] = resultItem{result: m.results[i]}
	}
	m.resultList.SetItems(items)
	m.resultList.Select(0)
	return m
}

// updateListSizes updates list dimensions based on terminal size
func (m Model) updateListSizes() Model {
	// Reserve space for header (2), tabs (2), column headers (1), help (2), margins (2)
	listHeight := m.height - 9
	if listHeight < 5 {
		listHeight = 5
	}
	listWidth := m.width - 4
	if listWidth < 20 {
		listWidth = 20
	}

	// Lists that can open a transcript shrink when the panel is visible
	narrowWidth := listWidth
	if m.detailPanelOpen {
		narrowWidth = int(float64(listWidth) * 0.58)
	}

	// Search input and stats totals take two more rows
	shortHeight := max(listHeight-2, 3)

	m.sessionDelegate.SetWidth(narrowWidth)
	m.projectDelegate.SetWidth(listWidth)
	m.dayDelegate.SetWidth(listWidth)
	m.resultDelegate.SetWidth(narrowWidth)

	m.sessionList.SetSize(narrowWidth, listHeight)
	m.projectList.SetSize(listWidth, listHeight)
	m.dayList.SetSize(listWidth, shortHeight)
	m.resultList.SetSize(narrowWidth, shortHeight)
	m.searchInput.Width = listWidth - 4

	return m
}

// SelectedSession returns the highlighted session summary or nil
func (m Model) SelectedSession() *session.SessionSummary {
	if it, ok := m.sessionList.SelectedItem().(sessionItem); ok {
		s := it.summary
		return &s
	}
	return nil
}

// openDetail starts loading a transcript into the side panel
func (m Model) openDetail(project, sessionID string) (Model, tea.Cmd) {
	m.detailPanelOpen = true
	m.detailProject = project
	m.detailSessionID = sessionID
	m.detail = nil
	m.detailError = nil
	m.detailOffset = 0
	m.loadingDetail = true
	m = m.updateListSizes()
	tuiLog.Debug("detail_open", slog.String("project", project), slog.String("session", sessionID))
	return m, m.loadDetailCmd(project, sessionID)
}

// closeDetail hides the side panel
func (m Model) closeDetail() Model {
	m.detailPanelOpen = false
	m.detail = nil
	m.detailError = nil
	m.loadingDetail = false
	m.detailOffset = 0
	return m.updateListSizes()
}

// Run starts the full-screen UI and blocks until the user quits
func Run(opts ModelOptions) error {
	m := NewModel(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
