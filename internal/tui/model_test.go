package tui

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc_session_mgr/internal/session"
)

// fakeStore serves canned data and records the queries it saw
type fakeStore struct {
	mu        sync.Mutex
	sessions  []session.SessionSummary
	projects  []session.Project
	stats     *session.Stats
	results   []session.SearchResult
	details   map[string]*session.SessionDetail
	events    chan session.Event
	listCalls []string
	queries   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:   &session.Stats{},
		details: map[string]*session.SessionDetail{},
		events:  make(chan session.Event, 1),
	}
}

func (f *fakeStore) ListProjects() []session.Project { return f.projects }

func (f *fakeStore) ListSessions(projectID string, limit int) []session.SessionSummary {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, projectID)
	f.mu.Unlock()
	var out []session.SessionSummary
	for _, s := range f.sessions {
		if projectID != "" && s.ProjectID != projectID {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (f *fakeStore) GetSession(project, sessionID string) (*session.SessionDetail, bool) {
	d, ok := f.details[project+"/"+sessionID]
	return d, ok
}

func (f *fakeStore) Stats() *session.Stats { return f.stats }

func (f *fakeStore) SearchAll(query string, _ int) []session.SearchResult {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.results
}

func (f *fakeStore) FindProject(query string) (string, bool) {
	for _, p := range f.projects {
		if p.ProjectPath == query || p.Name == query {
			return p.Name, true
		}
	}
	return "", false
}

func (f *fakeStore) Subscribe() (<-chan session.Event, func()) {
	return f.events, func() {}
}

func newTestModel(t *testing.T, store *fakeStore) Model {
	t.Helper()
	m := NewModel(ModelOptions{Store: store, SessionsLimit: 10, SearchLimit: 5})
	// Set dimensions so view works
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEscape}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m, cmd
}

// apply runs cmd and feeds its message back into the model
func apply(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func sampleSessions() []session.SessionSummary {
	return []session.SessionSummary{
		{SessionID: "s1", ProjectID: "-home-me-webapp", ProjectPath: "/home/me/webapp", Preview: "fix the login bug", MessageCount: 4, TotalTokens: 1200},
		{SessionID: "s2", ProjectID: "-home-me-infra", ProjectPath: "/home/me/infra", Slug: "quiet-river", MessageCount: 2},
	}
}

func TestNewModel(t *testing.T) {
	m := NewModel(ModelOptions{Store: newFakeStore()})
	assert.Equal(t, ViewSessions, m.viewMode)
	assert.False(t, m.detailPanelOpen)
	assert.Equal(t, 50, m.sessionsLimit)
	assert.Equal(t, 20, m.searchLimit)
	assert.NoError(t, m.err)
	assert.NotNil(t, m.Init())
}

func TestNewModelWithoutStore(t *testing.T) {
	m := NewModel(ModelOptions{})
	require.Error(t, m.err)
	assert.Nil(t, m.Init())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, updated.View(), "no session store configured")
}

func TestViewModeCycle(t *testing.T) {
	m := newTestModel(t, newFakeStore())

	tests := []struct {
		key  string
		want ViewMode
	}{
		{"l", ViewProjects},
		{"l", ViewStats},
		{"l", ViewSearch},
		{"l", ViewSessions}, // wraps
		{"h", ViewSearch},   // wraps backwards
		{"h", ViewStats},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		assert.Equal(t, tt.want, m.viewMode, "after %q", tt.key)
	}
}

func TestViewModeNumbers(t *testing.T) {
	m := newTestModel(t, newFakeStore())

	tests := []struct {
		key  string
		want ViewMode
	}{
		{"2", ViewProjects},
		{"3", ViewStats},
		{"4", ViewSearch},
		{"1", ViewSessions},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		assert.Equal(t, tt.want, m.viewMode, "after %q", tt.key)
	}
}

func TestEscReturnsToSessions(t *testing.T) {
	m := newTestModel(t, newFakeStore())
	m.viewMode = ViewStats

	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewSessions, m.viewMode)
}

func TestSessionsLoaded(t *testing.T) {
	store := newFakeStore()
	store.sessions = sampleSessions()
	m := newTestModel(t, store)

	m = apply(t, m, m.loadSessionsCmd())
	require.Len(t, m.sessionList.Items(), 2)

	view := m.View()
	assert.Contains(t, view, "fix the login bug")
	assert.Contains(t, view, "quiet-river")
	assert.Contains(t, view, "1,200 tokens")
}

func TestEnterOpensTranscript(t *testing.T) {
	store := newFakeStore()
	store.sessions = sampleSessions()
	store.details["-home-me-webapp/s1"] = &session.SessionDetail{
		Project:      "-home-me-webapp",
		SessionID:    "s1",
		MessageCount: 2,
		Messages: []session.Record{
			decodeRecord(t, `{"type":"user","message":{"content":"please fix the login bug"}}`),
			decodeRecord(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"Found it in auth.go"}]}}`),
			decodeRecord(t, `{"type":"user","isMeta":true,"message":{"content":"hidden meta note"}}`),
		},
	}
	m := newTestModel(t, store)
	m = apply(t, m, m.loadSessionsCmd())

	m, cmd := press(t, m, "enter")
	assert.True(t, m.detailPanelOpen)
	assert.True(t, m.loadingDetail)
	assert.Contains(t, m.View(), "Loading...")

	m = apply(t, m, cmd)
	assert.False(t, m.loadingDetail)
	require.NotNil(t, m.detail)

	view := m.View()
	assert.Contains(t, view, "please fix the login bug")
	assert.Contains(t, view, "Found it in auth.go")
	assert.NotContains(t, view, "hidden meta note")

	m, _ = press(t, m, "esc")
	assert.False(t, m.detailPanelOpen)
	assert.Equal(t, ViewSessions, m.viewMode)
}

func TestEnterMissingTranscript(t *testing.T) {
	store := newFakeStore()
	store.sessions = sampleSessions()
	m := newTestModel(t, store)
	m = apply(t, m, m.loadSessionsCmd())

	m, cmd := press(t, m, "enter")
	m = apply(t, m, cmd)
	assert.ErrorIs(t, m.detailError, errSessionNotFound)
	assert.Contains(t, m.View(), "session not found")
}

func TestStaleTranscriptIgnored(t *testing.T) {
	m := newTestModel(t, newFakeStore())
	m.detailPanelOpen = true
	m.detailSessionID = "current"
	m.loadingDetail = true

	updated, _ := m.Update(detailLoadedMsg(&session.SessionDetail{SessionID: "old"}))
	m = updated.(Model)
	assert.Nil(t, m.detail)
	assert.True(t, m.loadingDetail)
}

func TestProjectEnterFiltersSessions(t *testing.T) {
	store := newFakeStore()
	store.sessions = sampleSessions()
	store.projects = []session.Project{
		{Name: "-home-me-infra", ProjectPath: "/home/me/infra", SessionCount: 1},
		{Name: "-home-me-webapp", ProjectPath: "/home/me/webapp", SessionCount: 1},
	}
	m := newTestModel(t, store)
	m, _ = press(t, m, "2")
	m = apply(t, m, m.loadProjectsCmd())
	require.Len(t, m.projectList.Items(), 2)

	m, cmd := press(t, m, "enter")
	assert.Equal(t, ViewSessions, m.viewMode)
	assert.Equal(t, "-home-me-infra", m.projectFilter)

	m = apply(t, m, cmd)
	require.Len(t, m.sessions, 1)
	assert.Equal(t, "s2", m.sessions[0].SessionID)
	assert.Contains(t, m.View(), "[infra]")

	// Results for the unfiltered list arriving late are dropped
	updated, _ := m.Update(sessionsLoadedMsg{project: "", sessions: sampleSessions()})
	m = updated.(Model)
	assert.Len(t, m.sessions, 1)

	m, cmd = press(t, m, "esc")
	assert.Empty(t, m.projectFilter)
	m = apply(t, m, cmd)
	assert.Len(t, m.sessions, 2)
}

func TestSearchFlow(t *testing.T) {
	store := newFakeStore()
	store.results = []session.SearchResult{
		{SessionID: "s1", Project: "-home-me-webapp", MatchType: session.MatchUser, MatchedContent: "deploy the service"},
	}
	m := newTestModel(t, store)

	m, _ = press(t, m, "/")
	assert.Equal(t, ViewSearch, m.viewMode)
	require.True(t, m.searchInput.Focused())
	assert.Contains(t, m.View(), "Press / to search")

	// Keys go to the input while it is focused
	m, _ = press(t, m, "d", "e", "q")
	assert.Equal(t, "deq", m.searchInput.Value())
	assert.Equal(t, ViewSearch, m.viewMode)

	m, cmd := press(t, m, "enter")
	assert.False(t, m.searchInput.Focused())
	assert.Equal(t, "deq", m.lastQuery)

	m = apply(t, m, cmd)
	require.Len(t, m.resultList.Items(), 1)
	assert.Equal(t, []string{"deq"}, store.queries)
	assert.Contains(t, m.View(), "deploy the service")
}

func TestSearchStaleResultsIgnored(t *testing.T) {
	m := newTestModel(t, newFakeStore())
	m.lastQuery = "new"

	updated, _ := m.Update(searchResultsMsg{query: "old", results: []session.SearchResult{{SessionID: "x"}}})
	m = updated.(Model)
	assert.Empty(t, m.results)
}

func TestCommandResultOpensResolvedProject(t *testing.T) {
	store := newFakeStore()
	store.projects = []session.Project{{Name: "-home-me-webapp", ProjectPath: "/home/me/webapp"}}
	store.details["-home-me-webapp/s1"] = &session.SessionDetail{Project: "-home-me-webapp", SessionID: "s1"}
	store.results = []session.SearchResult{
		{SessionID: "s1", Project: "/home/me/webapp", MatchType: session.MatchCommand, MatchedContent: "run tests"},
	}
	m := newTestModel(t, store)
	m.viewMode = ViewSearch
	m.lastQuery = "run"
	m = apply(t, m, m.searchCmd("run"))

	m, cmd := press(t, m, "enter")
	assert.Equal(t, "-home-me-webapp", m.detailProject)
	m = apply(t, m, cmd)
	require.NotNil(t, m.detail)
	assert.Contains(t, m.View(), "No conversation text")
}

func TestIndexEventReloads(t *testing.T) {
	store := newFakeStore()
	store.sessions = sampleSessions()
	m := newTestModel(t, store)

	_, cmd := m.Update(indexEventMsg(session.Event{Op: session.OpWrite, Path: "/x/s1.jsonl", Time: time.Now()}))
	require.NotNil(t, cmd)

	store.events <- session.Event{Op: session.OpCreate}
	msg := m.waitEventCmd()()
	ev, ok := msg.(indexEventMsg)
	require.True(t, ok)
	assert.Equal(t, session.OpCreate, ev.Op)
}

func TestStatsView(t *testing.T) {
	store := newFakeStore()
	store.stats = &session.Stats{
		Global: session.GlobalStats{TotalTokens: 12345, TotalSessions: 3, TotalProjects: 2},
		ByDay: []session.DayStats{
			{Date: "2024-02-03", Tokens: 10000, Sessions: 2},
			{Date: "2024-02-01", Tokens: 2345, Sessions: 1},
		},
	}
	m := newTestModel(t, store)
	m, _ = press(t, m, "3")
	m = apply(t, m, m.loadStatsCmd())

	require.Len(t, m.dayList.Items(), 2)
	assert.Equal(t, int64(10000), m.dayDelegate.peak)
	view := m.View()
	assert.Contains(t, view, "12,345")
	assert.Contains(t, view, "2024-02-03")
}

func TestDetailScroll(t *testing.T) {
	m := newTestModel(t, newFakeStore())
	m.detailPanelOpen = true

	m, _ = press(t, m, "J", "J")
	assert.Equal(t, 2, m.detailOffset)
	m, _ = press(t, m, "K", "K", "K")
	assert.Equal(t, 0, m.detailOffset)
}

func TestUsageBar(t *testing.T) {
	tests := []struct {
		name        string
		value, peak int64
		width       int
		want        int
	}{
		{"peak fills width", 100, 100, 10, 10},
		{"half", 50, 100, 10, 5},
		{"tiny value still shows", 1, 1000, 10, 1},
		{"zero value", 0, 100, 10, 0},
		{"no room", 50, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, len([]rune(usageBar(tt.value, tt.peak, tt.width))))
		})
	}
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "hello...", truncate("hello world", 8))
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "   ab", padLeft("ab", 5))
	assert.Equal(t, "a b c", oneLine("a\n  b\tc"))
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "a\nb\n...", truncateMultiline("a\nb\nc", 10, 2))
}

func TestFormatTimeAgo(t *testing.T) {
	assert.Equal(t, "-", formatTimeAgo(""))
	assert.Equal(t, "not-a-time", formatTimeAgo("not-a-time"))
	assert.Equal(t, "just now", formatTimeAgo(time.Now().UTC().Format(time.RFC3339Nano)))
	assert.Contains(t, formatTimeAgo(time.Now().Add(-3*time.Hour).UTC().Format(time.RFC3339)), "hours ago")
}

func decodeRecord(t *testing.T, line string) session.Record {
	t.Helper()
	var rec session.Record
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	return rec
}
