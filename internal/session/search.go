package session

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// MinQueryLength is the shortest query, in characters, that is searched.
	MinQueryLength = 2

	matchRunes = 200
)

// validQuery reports whether a query is long enough to search.
func validQuery(query string) bool {
	return utf8.RuneCountInString(query) >= MinQueryLength
}

// searchableText extracts the text of a record that search considers, and
// the match type it reports. A hook_progress command takes precedence.
func searchableText(rec *Record) (string, string) {
	if rec.Data != nil && rec.Data.Type == "hook_progress" && rec.Data.Command != "" {
		return rec.Data.Command, MatchSystem
	}

	if rec.Type != "user" && rec.Type != "assistant" {
		return "", ""
	}
	content := rec.Content()
	if !content.HasText() {
		return "", ""
	}
	return content.SearchText(), rec.Type
}

// searchTranscripts scans every record of every transcript in directory
// order, stopping once limit matches are found.
func searchTranscripts(root, query string, limit int) []SearchResult {
	results := []SearchResult{}
	if limit <= 0 {
		return results
	}

	needle := strings.ToLower(query)

	for _, project := range listProjectDirs(root) {
		projectDir := filepath.Join(root, project)
		for _, file := range listTranscripts(projectDir) {
			records := ReadJSONL(filepath.Join(projectDir, file), 0)
			for i := range records {
				rec := &records[i]
				text, matchType := searchableText(rec)
				if text == "" || !strings.Contains(strings.ToLower(text), needle) {
					continue
				}

				ts := rec.Timestamp
				if ts == "" && rec.Snapshot != nil {
					ts = rec.Snapshot.Timestamp
				}

				results = append(results, SearchResult{
					SessionID:      sessionIDFromFile(file),
					Project:        project,
					Timestamp:      ts,
					MatchedContent: truncateRunes(text, matchRunes),
					MatchType:      matchType,
				})
				if len(results) >= limit {
					return results
				}
			}
		}
	}

	return results
}

// mergeResults concatenates hits, orders them newest first by lexical
// timestamp (missing timestamps last) and truncates to limit.
func mergeResults(limit int, sets ...[]SearchResult) []SearchResult {
	merged := []SearchResult{}
	for _, set := range sets {
		merged = append(merged, set...)
	}
	slices.SortStableFunc(merged, func(a, b SearchResult) int {
		return strings.Compare(b.Timestamp, a.Timestamp)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
