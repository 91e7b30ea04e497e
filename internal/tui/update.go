package tui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"cc_session_mgr/internal/session"
)

// detailPageLines is how far pgup/pgdown move the transcript
const detailPageLines = 10

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.updateListSizes(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionsLoadedMsg:
		// Drop results for a filter that is no longer active
		if msg.project != m.projectFilter {
			return m, nil
		}
		m.sessions = msg.sessions
		return m.updateSessionList(), nil

	case projectsLoadedMsg:
		m.projects = msg
		return m.updateProjectList(), nil

	case statsLoadedMsg:
		m.stats = msg
		return m.updateDayList(), nil

	case searchResultsMsg:
		if msg.query != m.lastQuery {
			return m, nil
		}
		m.results = msg.results
		return m.updateResultList(), nil

	case indexEventMsg:
		tuiLog.Debug("index_changed", slog.String("op", msg.Op), slog.String("path", msg.Path))
		cmds := []tea.Cmd{m.waitEventCmd(), m.loadSessionsCmd(), m.loadProjectsCmd(), m.loadStatsCmd()}
		if m.lastQuery != "" {
			cmds = append(cmds, m.searchCmd(m.lastQuery))
		}
		if m.detailPanelOpen && !m.loadingDetail {
			cmds = append(cmds, m.loadDetailCmd(m.detailProject, m.detailSessionID))
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.refreshCmd())

	case detailLoadedMsg:
		// Ignore a transcript that arrives after the panel moved on
		if !m.detailPanelOpen || msg == nil || msg.SessionID != m.detailSessionID {
			return m, nil
		}
		m.detail = msg
		m.loadingDetail = false
		m.detailError = nil
		return m, nil

	case detailErrorMsg:
		if !m.detailPanelOpen {
			return m, nil
		}
		tuiLog.Debug("detail_load_failed", slog.String("session", m.detailSessionID), slog.String("error", msg.Error()))
		m.loadingDetail = false
		m.detailError = msg.error
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The search box owns the keyboard while focused
	if m.searchInput.Focused() {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "1":
		return m.setView(ViewSessions)
	case "2":
		return m.setView(ViewProjects)
	case "3":
		return m.setView(ViewStats)
	case "4":
		return m.setView(ViewSearch)

	case "l", "right":
		return m.setView((m.viewMode + 1) % viewCount)
	case "h", "left":
		return m.setView((m.viewMode + viewCount - 1) % viewCount)

	case "/":
		next, _ := m.setView(ViewSearch)
		model := next.(Model)
		cmd := model.searchInput.Focus()
		return model, cmd

	case "r":
		return m, m.refreshCmd()

	case "enter":
		return m.handleEnter()

	case "esc":
		return m.handleEsc()

	case "J", "pgdown":
		if m.detailPanelOpen {
			m.detailOffset += scrollStep(msg.String())
			return m, nil
		}
	case "K", "pgup":
		if m.detailPanelOpen {
			m.detailOffset = max(m.detailOffset-scrollStep(msg.String()), 0)
			return m, nil
		}
	}

	// Delegate navigation to the active list
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewSessions:
		m.sessionList, cmd = m.sessionList.Update(msg)
	case ViewProjects:
		m.projectList, cmd = m.projectList.Update(msg)
	case ViewStats:
		m.dayList, cmd = m.dayList.Update(msg)
	case ViewSearch:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

func scrollStep(key string) int {
	if strings.HasPrefix(key, "pg") {
		return detailPageLines
	}
	return 1
}

// handleSearchKey routes keys to the focused search box
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchInput.Blur()
		m.lastQuery = strings.TrimSpace(m.searchInput.Value())
		if m.lastQuery == "" {
			m.results = nil
			return m.updateResultList(), nil
		}
		return m, m.searchCmd(m.lastQuery)
	case "esc":
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleEnter opens the selection: a transcript, or a project's sessions
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.viewMode {
	case ViewSessions:
		if s := m.SelectedSession(); s != nil {
			return m.openDetail(s.ProjectID, s.SessionID)
		}

	case ViewProjects:
		it, ok := m.projectList.SelectedItem().(projectItem)
		if !ok {
			return m, nil
		}
		m.projectFilter = it.project.Name
		m.sessions = nil
		m.sessionList.SetItems([]list.Item{})
		m.sessionList.Select(0)
		m.viewMode = ViewSessions
		return m, m.loadSessionsCmd()

	case ViewSearch:
		it, ok := m.resultList.SelectedItem().(resultItem)
		if !ok || it.result.SessionID == "" {
			return m, nil
		}
		project := it.result.Project
		// History entries name the working directory, not the encoded project
		if it.result.MatchType == session.MatchCommand {
			name, found := m.store.FindProject(project)
			if !found {
				m.detailPanelOpen = true
				m.detailError = errSessionNotFound
				return m.updateListSizes(), nil
			}
			project = name
		}
		return m.openDetail(project, it.result.SessionID)
	}
	return m, nil
}

// handleEsc backs out one level: panel, project filter, then to sessions
func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch {
	case m.detailPanelOpen:
		return m.closeDetail(), nil
	case m.viewMode == ViewSessions && m.projectFilter != "":
		m.projectFilter = ""
		return m, m.loadSessionsCmd()
	default:
		m.viewMode = ViewSessions
		return m.updateListSizes(), nil
	}
}

// setView switches tabs, closing the transcript panel on the way
func (m Model) setView(v ViewMode) (tea.Model, tea.Cmd) {
	if v == m.viewMode {
		return m, nil
	}
	if m.detailPanelOpen {
		m = m.closeDetail()
	}
	m.viewMode = v
	return m, m.refreshCmd()
}
