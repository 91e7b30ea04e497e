package session

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	projectPreviewLimit = 10
	previewRunes        = 100
)

var commandEchoPrefixes = []string{"<local-command-", "<command-name>"}

// listProjectDirs returns the project directory names under root in directory order.
func listProjectDirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

// listTranscripts returns the transcript file names in dir in directory order.
func listTranscripts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), transcriptExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func sessionIDFromFile(name string) string {
	return strings.TrimSuffix(name, transcriptExt)
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// scanProjects builds the project listing from directory contents and file tails.
func scanProjects(root string, resolver *Resolver) []Project {
	dirs := listProjectDirs(root)
	projects := make([]Project, 0, len(dirs))

	for _, name := range dirs {
		projectDir := filepath.Join(root, name)
		files := listTranscripts(projectDir)

		previews := make([]SessionPreview, 0, len(files))
		for _, file := range files {
			sessionPath := filepath.Join(projectDir, file)
			info, err := os.Stat(sessionPath)
			if err != nil {
				continue
			}
			id := sessionIDFromFile(file)
			modified := isoTime(info.ModTime())
			last := modified
			if rec, ok := ReadLastRecord(sessionPath); ok && rec.Timestamp != "" {
				last = rec.Timestamp
			}
			previews = append(previews, SessionPreview{
				ID:           id,
				Name:         id,
				FileSize:     info.Size(),
				LastModified: modified,
				LastMessage:  last,
			})
		}

		slices.SortStableFunc(previews, func(a, b SessionPreview) int {
			return strings.Compare(b.LastMessage, a.LastMessage)
		})
		if len(previews) > projectPreviewLimit {
			previews = previews[:projectPreviewLimit]
		}

		projects = append(projects, Project{
			Name:         name,
			Path:         name,
			ProjectPath:  resolver.ResolveOr(name, name),
			SessionCount: len(files),
			Sessions:     previews,
		})
	}

	return projects
}

// scanSessions summarizes transcripts of one project, or all projects when
// projectID is empty. Scanning stops once limit summaries are collected.
func scanSessions(root string, resolver *Resolver, projectID string, limit int) []SessionSummary {
	if limit <= 0 {
		return []SessionSummary{}
	}

	var projects []string
	if projectID != "" {
		if !isLocalName(projectID) {
			return []SessionSummary{}
		}
		projects = []string{projectID}
	} else {
		projects = listProjectDirs(root)
	}

	summaries := make([]SessionSummary, 0, min(limit, 64))

scan:
	for _, proj := range projects {
		projectDir := filepath.Join(root, proj)
		files := listTranscripts(projectDir)
		if len(files) == 0 {
			continue
		}
		projectPath := resolver.ResolveOr(proj, proj)

		for _, file := range files {
			records := ReadJSONL(filepath.Join(projectDir, file), 0)
			summary, ok := summarize(records)
			if !ok {
				continue
			}
			summary.SessionID = sessionIDFromFile(file)
			summary.ProjectID = proj
			summary.ProjectPath = projectPath
			summaries = append(summaries, summary)
			if len(summaries) >= limit {
				break scan
			}
		}
	}

	// Descending by first timestamp; empty timestamps compare as "" and land last.
	slices.SortStableFunc(summaries, func(a, b SessionSummary) int {
		return strings.Compare(b.Timestamp, a.Timestamp)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// summarize derives the summary fields of a transcript. Transcripts without
// any decoded record are rejected.
func summarize(records []Record) (SessionSummary, bool) {
	if len(records) == 0 {
		return SessionSummary{}, false
	}

	s := SessionSummary{
		Timestamp:   records[0].Timestamp,
		LastMessage: records[len(records)-1].Timestamp,
	}

	for i := range records {
		rec := &records[i]

		if s.Slug == "" && rec.Slug != "" {
			s.Slug = rec.Slug
		}

		if !rec.IsMeta && (rec.Type == "user" || rec.Type == "assistant") {
			s.MessageCount++
		}

		if s.Preview == "" && !rec.IsMeta && rec.Type == "user" {
			s.Preview = previewOf(rec.Content().PreviewText())
		}

		if usage, ok := rec.Usage(); ok {
			s.TotalInputTokens += usage.InputTokens
			s.TotalOutputTokens += usage.OutputTokens
		}
	}

	s.TotalTokens = s.TotalInputTokens + s.TotalOutputTokens
	return s, true
}

// previewOf returns the preview for a user message text, or "" if the text
// is empty or a command echo.
func previewOf(text string) string {
	if text == "" {
		return ""
	}
	for _, prefix := range commandEchoPrefixes {
		if strings.HasPrefix(text, prefix) {
			return ""
		}
	}
	return strings.ReplaceAll(truncateRunes(text, previewRunes), "\n", " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// isLocalName reports whether name is a single path element that cannot
// leave its parent directory.
func isLocalName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}

// loadSession reads one transcript. The resolved path must stay strictly
// inside root and name an existing regular file.
func loadSession(root, project, sessionID string) (*SessionDetail, bool) {
	sessionPath, ok := sessionFilePath(root, project, sessionID)
	if !ok {
		return nil, false
	}

	info, err := os.Stat(sessionPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}

	records := ReadJSONL(sessionPath, 0)
	return &SessionDetail{
		Project:      project,
		SessionID:    sessionID,
		MessageCount: len(records),
		Messages:     records,
	}, true
}

// sessionFilePath joins root/project/sessionID.jsonl and rejects any result
// that escapes root. No filesystem access happens here.
func sessionFilePath(root, project, sessionID string) (string, bool) {
	if project == "" || sessionID == "" {
		return "", false
	}
	root = filepath.Clean(root)
	candidate := filepath.Join(root, project, sessionID+transcriptExt)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return candidate, true
}
