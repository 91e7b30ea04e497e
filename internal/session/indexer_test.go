package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProjects(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	// The path comes from the first transcript by name, so "new" carries the cwd.
	writeTranscript(t, root, "-home-me-app", "new",
		`{"type":"progress","data":{"cwd":"/home/me/app"},"timestamp":"2024-03-01T00:00:00Z"}`,
		`{"type":"user","timestamp":"2024-03-02T00:00:00Z"}`,
		`{"type":"assistant","timestamp":"2024-03-05T00:00:00Z"}`,
	)
	writeTranscript(t, root, "-home-me-app", "old",
		`{"type":"user","timestamp":"2024-01-02T00:00:00Z"}`,
	)
	writeTranscript(t, root, "-home-me-app", "zz-broken", `not json`)
	require.NoError(t, os.WriteFile(filepath.Join(root, "-home-me-app", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.jsonl"), []byte("{}"), 0o644))

	projects := ix.ListProjects()
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "-home-me-app", p.Name)
	assert.Equal(t, "-home-me-app", p.Path)
	assert.Equal(t, "/home/me/app", p.ProjectPath)
	assert.Equal(t, 3, p.SessionCount)
	require.Len(t, p.Sessions, 3)

	// The broken file falls back to its mtime, which is newer than both fixtures.
	assert.Equal(t, "zz-broken", p.Sessions[0].ID)
	assert.Equal(t, p.Sessions[0].LastModified, p.Sessions[0].LastMessage)
	assert.Equal(t, "new", p.Sessions[1].ID)
	assert.Equal(t, "2024-03-05T00:00:00Z", p.Sessions[1].LastMessage)
	assert.Equal(t, "old", p.Sessions[2].ID)
	assert.Equal(t, "2024-01-02T00:00:00Z", p.Sessions[2].LastMessage)
	assert.Positive(t, p.Sessions[1].FileSize)
}

func TestListProjectsCapsPreviews(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	for i := 0; i < 15; i++ {
		writeTranscript(t, root, "proj", fmt.Sprintf("s%02d", i),
			fmt.Sprintf(`{"timestamp":"2024-01-%02dT00:00:00Z"}`, i+1))
	}

	projects := ix.ListProjects()
	require.Len(t, projects, 1)
	assert.Equal(t, 15, projects[0].SessionCount)
	require.Len(t, projects[0].Sessions, 10)
	assert.Equal(t, "s14", projects[0].Sessions[0].ID)
	assert.Equal(t, "s05", projects[0].Sessions[9].ID)
}

func TestListProjectsMissingRoot(t *testing.T) {
	ix := NewIndex(Options{ProjectsDir: filepath.Join(t.TempDir(), "nope")})
	defer ix.Close()
	assert.Empty(t, ix.ListProjects())
	assert.Empty(t, ix.ListSessions("", 10))
	assert.Empty(t, ix.Stats().ByProject)
}

func TestListSessionsSummary(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	long := strings.Repeat("word\n", 40)
	writeTranscript(t, root, "proj", "s1",
		`{"type":"summary","timestamp":"2024-05-01T10:00:00Z"}`,
		rec(t, map[string]any{"type": "user", "isMeta": true, "message": map[string]any{"content": "meta message"}}),
		userLine(t, "2024-05-01T10:00:01Z", "<command-name>/clear</command-name>"),
		userLine(t, "2024-05-01T10:00:02Z", []any{map[string]any{"type": "text", "text": "<local-command-stdout></local-command-stdout>"}}),
		userLine(t, "2024-05-01T10:00:03Z", ""),
		userLine(t, "2024-05-01T10:00:04Z", long),
		`{"type":"user","slug":"brave-otter","timestamp":"2024-05-01T10:00:05Z"}`,
		assistantLine(t, "2024-05-01T10:00:06Z", "ok", 100, 20),
		`{broken`,
		assistantLine(t, "2024-05-01T11:00:00Z", []any{map[string]any{"type": "text", "text": "done"}}, 5, 3),
		`{"type":"user","slug":"second-slug","timestamp":"2024-05-01T12:00:00Z"}`,
	)

	list := ix.ListSessions("proj", 10)
	require.Len(t, list, 1)
	s := list[0]

	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "proj", s.ProjectID)
	assert.Equal(t, "proj", s.ProjectPath)
	assert.Equal(t, "2024-05-01T10:00:00Z", s.Timestamp)
	assert.Equal(t, "2024-05-01T12:00:00Z", s.LastMessage)
	assert.Equal(t, "brave-otter", s.Slug)
	assert.Equal(t, strings.ReplaceAll(long[:100], "\n", " "), s.Preview)
	assert.Equal(t, 8, s.MessageCount)
	assert.Equal(t, int64(105), s.TotalInputTokens)
	assert.Equal(t, int64(23), s.TotalOutputTokens)
	assert.Equal(t, int64(128), s.TotalTokens)
}

func TestListSessionsPreviewObjectContent(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	writeTranscript(t, root, "proj", "s1",
		userLine(t, "2024-01-01T00:00:00Z", map[string]any{"text": "from an object"}))
	writeTranscript(t, root, "proj", "s2",
		assistantLine(t, "2024-01-02T00:00:00Z", "assistant only", 1, 1))

	list := ix.ListSessions("proj", 10)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].SessionID)
	assert.Empty(t, list[0].Preview)
	assert.Equal(t, "from an object", list[1].Preview)
}

func TestListSessionsOrderingAndLimit(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	writeTranscript(t, root, "a", "a1", `{"timestamp":"2024-01-03T00:00:00Z"}`)
	writeTranscript(t, root, "a", "a2", `{"type":"user"}`)
	writeTranscript(t, root, "a", "empty", `garbage`)
	writeTranscript(t, root, "b", "b1", `{"timestamp":"2024-01-05T00:00:00Z"}`)
	writeTranscript(t, root, "b", "b2", `{"timestamp":"2024-01-01T00:00:00Z"}`)

	all := ix.ListSessions("", 50)
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.SessionID
	}
	// Missing timestamps sort after every present one.
	assert.Equal(t, []string{"b1", "a1", "b2", "a2"}, ids)

	// The limit counts summaries across projects in directory order.
	limited := ix.ListSessions("", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "a1", limited[0].SessionID)
	assert.Equal(t, "a2", limited[1].SessionID)

	assert.Empty(t, ix.ListSessions("", 0))
	assert.Empty(t, ix.ListSessions("", -1))
	assert.Empty(t, ix.ListSessions("missing", 10))
	assert.Empty(t, ix.ListSessions("../a", 10))
}

func TestListSessionsCached(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	clock := newFakeClock()
	ix.Cache().SetClock(clock.Now)

	writeTranscript(t, root, "p", "s1", `{"timestamp":"2024-01-01T00:00:00Z"}`)
	first := ix.ListSessions("p", 10)
	require.Len(t, first, 1)

	writeTranscript(t, root, "p", "s2", `{"timestamp":"2024-01-02T00:00:00Z"}`)
	assert.Len(t, ix.ListSessions("p", 10), 1, "served from cache within the TTL")

	clock.Advance(DefaultCacheTTL)
	assert.Len(t, ix.ListSessions("p", 10), 2)
}

func TestProjectsRecomputedAfterInvalidate(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	clock := newFakeClock()
	ix.Cache().SetClock(clock.Now)

	writeTranscript(t, root, "p1", "s", `{}`)
	require.Len(t, ix.ListProjects(), 1)

	writeTranscript(t, root, "p2", "s", `{}`)
	require.Len(t, ix.ListProjects(), 1)

	ix.Invalidate(Event{Op: OpCreate, Path: filepath.Join(root, "p2", "s.jsonl"), Time: time.Now()})
	assert.Len(t, ix.ListProjects(), 2)
}

func TestGetSession(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	writeTranscript(t, root, "proj", "abc",
		`{"type":"user","timestamp":"t1"}`,
		`oops`,
		`{"type":"assistant","timestamp":"t2"}`,
	)
	writeTranscript(t, root, "proj", "empty", ``)

	detail, ok := ix.GetSession("proj", "abc")
	require.True(t, ok)
	assert.Equal(t, "proj", detail.Project)
	assert.Equal(t, "abc", detail.SessionID)
	assert.Equal(t, 2, detail.MessageCount)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "t2", detail.Messages[1].Timestamp)

	// Found but empty is distinct from absent.
	detail, ok = ix.GetSession("proj", "empty")
	require.True(t, ok)
	assert.Equal(t, 0, detail.MessageCount)

	_, ok = ix.GetSession("proj", "missing")
	assert.False(t, ok)
}

func TestGetSessionRejectsTraversal(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	// A transcript just outside the projects root.
	outside := filepath.Join(filepath.Dir(root), "secret.jsonl")
	require.NoError(t, os.WriteFile(outside, []byte(`{"type":"user"}`+"\n"), 0o644))
	writeTranscript(t, root, "proj", "ok", `{}`)

	tests := []struct {
		name, project, id string
	}{
		{"parent in id", "proj", "../../secret"},
		{"parent in project", "..", "secret"},
		{"absolute-looking project", "/..", "secret"},
		{"deep escape", "proj/../..", "secret"},
		{"empty project", "", "ok"},
		{"empty id", "proj", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, ok := ix.GetSession(tt.project, tt.id)
			assert.False(t, ok)
			assert.Nil(t, detail)
		})
	}

	_, ok := sessionFilePath(root, "proj", "../../secret")
	assert.False(t, ok)
	p, ok := sessionFilePath(root, "proj", "ok")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "proj", "ok.jsonl"), p)
}

func TestGetSessionRejectsDirectory(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj", "dir.jsonl"), 0o755))

	_, ok := ix.GetSession("proj", "dir")
	assert.False(t, ok)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
