package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTranscript writes lines to root/project/id.jsonl and returns the path.
func writeTranscript(t *testing.T, root, project, id string, lines ...string) string {
	t.Helper()
	dir := filepath.Join(root, project)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, id+transcriptExt)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// rec marshals a record literal to one JSON line.
func rec(t *testing.T, v map[string]any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func userLine(t *testing.T, ts string, content any) string {
	return rec(t, map[string]any{
		"type":      "user",
		"timestamp": ts,
		"message":   map[string]any{"role": "user", "content": content},
	})
}

func assistantLine(t *testing.T, ts string, content any, in, out int) string {
	return rec(t, map[string]any{
		"type":      "assistant",
		"timestamp": ts,
		"message": map[string]any{
			"role":    "assistant",
			"content": content,
			"usage":   map[string]any{"input_tokens": in, "output_tokens": out},
		},
	})
}

func newTestIndex(t *testing.T) (*Index, string, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "projects")
	require.NoError(t, os.MkdirAll(root, 0o755))
	history := filepath.Join(base, "history.jsonl")
	ix := NewIndex(Options{ProjectsDir: root, HistoryFile: history})
	t.Cleanup(func() { _ = ix.Close() })
	return ix, root, history
}
