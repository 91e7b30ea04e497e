package session

import (
	"path/filepath"
	"slices"
	"strings"
)

// dayOf returns the calendar date prefix of an ISO timestamp.
func dayOf(ts string) (string, bool) {
	if len(ts) < 10 {
		return "", false
	}
	return ts[:10], true
}

// computeStats aggregates token usage in a single pass over every transcript.
// Each session adds one to the session count of every distinct day it touched.
func computeStats(root string, resolver *Resolver) *Stats {
	stats := &Stats{
		ByProject: []ProjectStats{},
		ByDay:     []DayStats{},
	}
	byDay := make(map[string]*DayStats)

	dayBucket := func(day string) *DayStats {
		b, ok := byDay[day]
		if !ok {
			b = &DayStats{Date: day}
			byDay[day] = b
		}
		return b
	}

	for _, name := range listProjectDirs(root) {
		projectDir := filepath.Join(root, name)
		files := listTranscripts(projectDir)

		ps := ProjectStats{
			Project:     name,
			ProjectPath: resolver.ResolveOr(name, name),
			Sessions:    len(files),
		}

		for _, file := range files {
			records := ReadJSONL(filepath.Join(projectDir, file), 0)
			stats.Global.TotalSessions++

			days := make(map[string]struct{})
			for i := range records {
				rec := &records[i]
				day, hasDay := dayOf(rec.Timestamp)
				if hasDay {
					days[day] = struct{}{}
				}

				usage, ok := rec.Usage()
				if !ok {
					continue
				}
				ps.InputTokens += usage.InputTokens
				ps.OutputTokens += usage.OutputTokens
				if hasDay {
					b := dayBucket(day)
					b.InputTokens += usage.InputTokens
					b.OutputTokens += usage.OutputTokens
					b.Tokens += usage.InputTokens + usage.OutputTokens
				}
			}

			for day := range days {
				dayBucket(day).Sessions++
			}
		}

		ps.Tokens = ps.InputTokens + ps.OutputTokens
		stats.Global.TotalInputTokens += ps.InputTokens
		stats.Global.TotalOutputTokens += ps.OutputTokens
		stats.ByProject = append(stats.ByProject, ps)
	}

	stats.Global.TotalProjects = len(stats.ByProject)
	stats.Global.TotalTokens = stats.Global.TotalInputTokens + stats.Global.TotalOutputTokens

	for _, b := range byDay {
		stats.ByDay = append(stats.ByDay, *b)
	}
	slices.SortFunc(stats.ByDay, func(a, b DayStats) int {
		return strings.Compare(b.Date, a.Date)
	})

	return stats
}
