package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsTotals(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	writeTranscript(t, root, "alpha", "s1",
		`{"type":"progress","data":{"cwd":"/work/alpha"}}`,
		assistantLine(t, "2024-02-01T09:00:00Z", "a", 10, 5),
		assistantLine(t, "2024-02-01T10:00:00Z", "b", 1, 2),
	)
	writeTranscript(t, root, "alpha", "s2", `broken`)
	writeTranscript(t, root, "beta", "s3",
		assistantLine(t, "2024-02-03T09:00:00Z", "c", 100, 50),
		`{"message":{"usage":{"input_tokens":7,"output_tokens":3}}}`,
	)

	stats := ix.Stats()

	assert.Equal(t, 3, stats.Global.TotalSessions)
	assert.Equal(t, 2, stats.Global.TotalProjects)
	assert.Equal(t, int64(118), stats.Global.TotalInputTokens)
	assert.Equal(t, int64(60), stats.Global.TotalOutputTokens)
	assert.Equal(t, stats.Global.TotalInputTokens+stats.Global.TotalOutputTokens, stats.Global.TotalTokens)

	require.Len(t, stats.ByProject, 2)
	var sum int64
	for _, p := range stats.ByProject {
		sum += p.Tokens
		assert.Equal(t, p.InputTokens+p.OutputTokens, p.Tokens)
	}
	assert.Equal(t, stats.Global.TotalTokens, sum)

	alpha := stats.ByProject[0]
	assert.Equal(t, "alpha", alpha.Project)
	assert.Equal(t, "/work/alpha", alpha.ProjectPath)
	assert.Equal(t, 2, alpha.Sessions)
	assert.Equal(t, int64(18), alpha.Tokens)

	beta := stats.ByProject[1]
	assert.Equal(t, "beta", beta.ProjectPath)
	assert.Equal(t, int64(160), beta.Tokens)

	// Usage without a timestamp counts globally but not per day.
	require.Len(t, stats.ByDay, 2)
	assert.Equal(t, "2024-02-03", stats.ByDay[0].Date)
	assert.Equal(t, int64(150), stats.ByDay[0].Tokens)
	assert.Equal(t, "2024-02-01", stats.ByDay[1].Date)
	assert.Equal(t, int64(18), stats.ByDay[1].Tokens)
	assert.Equal(t, int64(11), stats.ByDay[1].InputTokens)
	assert.Equal(t, int64(7), stats.ByDay[1].OutputTokens)
}

func TestStatsDayBucketSessions(t *testing.T) {
	ix, root, _ := newTestIndex(t)

	// One session spanning three days, several records per day.
	writeTranscript(t, root, "p", "multi",
		assistantLine(t, "2024-06-01T08:00:00Z", "x", 1, 1),
		assistantLine(t, "2024-06-01T09:00:00Z", "x", 1, 1),
		`{"type":"user","timestamp":"2024-06-02T10:00:00Z"}`,
		assistantLine(t, "2024-06-03T08:00:00Z", "x", 1, 1),
		assistantLine(t, "2024-06-03T23:59:59Z", "x", 1, 1),
	)
	// A second session touching one of those days.
	writeTranscript(t, root, "p", "single",
		assistantLine(t, "2024-06-03T12:00:00Z", "x", 2, 2),
	)

	stats := ix.Stats()
	require.Len(t, stats.ByDay, 3)

	byDate := map[string]DayStats{}
	for _, d := range stats.ByDay {
		byDate[d.Date] = d
	}

	assert.Equal(t, 1, byDate["2024-06-01"].Sessions)
	assert.Equal(t, 1, byDate["2024-06-02"].Sessions)
	assert.Equal(t, int64(0), byDate["2024-06-02"].Tokens)
	assert.Equal(t, 2, byDate["2024-06-03"].Sessions)
	assert.Equal(t, int64(8), byDate["2024-06-03"].Tokens)

	assert.Equal(t, []string{"2024-06-03", "2024-06-02", "2024-06-01"},
		[]string{stats.ByDay[0].Date, stats.ByDay[1].Date, stats.ByDay[2].Date})
}

func TestStatsCachedUntilInvalidated(t *testing.T) {
	ix, root, _ := newTestIndex(t)
	clock := newFakeClock()
	ix.Cache().SetClock(clock.Now)

	writeTranscript(t, root, "p", "s1", assistantLine(t, "2024-01-01T00:00:00Z", "x", 1, 1))
	first := ix.Stats()
	assert.Equal(t, int64(2), first.Global.TotalTokens)

	writeTranscript(t, root, "p", "s2", assistantLine(t, "2024-01-01T00:00:00Z", "x", 5, 5))
	assert.Same(t, first, ix.Stats())

	ix.Invalidate(Event{Op: OpCreate})
	second := ix.Stats()
	assert.Equal(t, int64(12), second.Global.TotalTokens)
}

func TestStatsEmptyRoot(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	stats := ix.Stats()
	assert.Equal(t, GlobalStats{}, stats.Global)
	assert.NotNil(t, stats.ByProject)
	assert.NotNil(t, stats.ByDay)
}
