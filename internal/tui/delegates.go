package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"cc_session_mgr/internal/session"
)

// ============================================================================
// Session Item
// ============================================================================

// sessionItem wraps a SessionSummary for the list component
type sessionItem struct {
	summary session.SessionSummary
}

func (i sessionItem) FilterValue() string { return i.summary.ProjectPath }
func (i sessionItem) Title() string       { return sessionLabel(i.summary) }
func (i sessionItem) Description() string {
	return fmt.Sprintf("%d messages | %s", i.summary.MessageCount, formatTimeAgo(i.summary.LastMessage))
}

// sessionLabel picks the most readable name for a session
func sessionLabel(s session.SessionSummary) string {
	switch {
	case s.Preview != "":
		return oneLine(s.Preview)
	case s.Slug != "":
		return s.Slug
	default:
		return s.SessionID
	}
}

// sessionDelegate renders session items
type sessionDelegate struct {
	width int
}

func newSessionDelegate() *sessionDelegate {
	return &sessionDelegate{width: 80}
}

func (d *sessionDelegate) SetWidth(w int)                           { d.width = w }
func (d *sessionDelegate) Height() int                              { return 2 }
func (d *sessionDelegate) Spacing() int                             { return 1 }
func (d *sessionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(sessionItem)
	if !ok {
		return
	}
	s := i.summary

	nameStyle := NormalItemStyle()
	if index == m.Index() {
		nameStyle = SelectedItemStyle()
	}

	when := TimestampStyle().Render(padRight(formatTimeAgo(s.LastMessage), SessionTimeWidth))
	labelWidth := max(d.width-SessionTimeWidth-2, 10)
	name := nameStyle.Render(truncate(sessionLabel(s), labelWidth))

	meta := fmt.Sprintf("%s  %s msgs  %s tokens",
		filepath.Base(s.ProjectPath),
		humanize.Comma(int64(s.MessageCount)),
		humanize.Comma(s.TotalTokens),
	)
	desc := MutedStyle().Render(truncate(meta, max(d.width-SessionTimeWidth-2, 10)))

	_, _ = fmt.Fprintf(w, "%s  %s\n%s  %s", when, name, strings.Repeat(" ", SessionTimeWidth), desc)
}

// ============================================================================
// Project Item
// ============================================================================

// projectItem wraps a Project for the list component
type projectItem struct {
	project session.Project
}

func (i projectItem) FilterValue() string { return i.project.ProjectPath }
func (i projectItem) Title() string       { return i.project.ProjectPath }
func (i projectItem) Description() string {
	return fmt.Sprintf("%d sessions", i.project.SessionCount)
}

// lastActive returns the newest session time of a project, or ""
func (i projectItem) lastActive() string {
	if len(i.project.Sessions) == 0 {
		return ""
	}
	return i.project.Sessions[0].LastMessage
}

// projectDelegate renders project items
type projectDelegate struct {
	width int
}

func newProjectDelegate() *projectDelegate {
	return &projectDelegate{width: 80}
}

func (d *projectDelegate) SetWidth(w int)                           { d.width = w }
func (d *projectDelegate) Height() int                              { return 2 }
func (d *projectDelegate) Spacing() int                             { return 1 }
func (d *projectDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(projectItem)
	if !ok {
		return
	}
	p := i.project

	pathStyle := PathStyle()
	if index == m.Index() {
		pathStyle = SelectedItemStyle()
	}

	count := CountBadgeStyle().Render(padLeft(humanize.Comma(int64(p.SessionCount)), ProjectCountWidth-2))
	path := pathStyle.Render(truncate(p.ProjectPath, max(d.width-ProjectCountWidth-1, 10)))
	desc := MutedStyle().Render(truncate(
		fmt.Sprintf("last active %s | %s", formatTimeAgo(i.lastActive()), p.Name),
		max(d.width-ProjectCountWidth-1, 10),
	))

	_, _ = fmt.Fprintf(w, "%s %s\n%s %s", count, path, strings.Repeat(" ", ProjectCountWidth), desc)
}

// ============================================================================
// Day Item
// ============================================================================

// dayItem wraps one day of token usage
type dayItem struct {
	day session.DayStats
}

func (i dayItem) FilterValue() string { return i.day.Date }
func (i dayItem) Title() string       { return i.day.Date }
func (i dayItem) Description() string { return humanize.Comma(i.day.Tokens) + " tokens" }

// dayDelegate renders day rows with a usage bar scaled to the busiest day
type dayDelegate struct {
	width int
	peak  int64
}

func newDayDelegate() *dayDelegate {
	return &dayDelegate{width: 80}
}

func (d *dayDelegate) SetWidth(w int)                           { d.width = w }
func (d *dayDelegate) SetPeak(p int64)                          { d.peak = p }
func (d *dayDelegate) Height() int                              { return 1 }
func (d *dayDelegate) Spacing() int                             { return 0 }
func (d *dayDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *dayDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(dayItem)
	if !ok {
		return
	}

	dateStyle := NormalItemStyle()
	if index == m.Index() {
		dateStyle = SelectedItemStyle()
	}

	date := dateStyle.Render(padRight(i.day.Date, DayDateWidth))
	tokens := TokenStyle().Render(padLeft(humanize.Comma(i.day.Tokens), DayTokensWidth))
	sessions := MutedStyle().Render(padLeft(humanize.Comma(int64(i.day.Sessions)), DaySessionsWidth))

	barWidth := d.width - DayDateWidth - DayTokensWidth - DaySessionsWidth - 6
	bar := BarStyle().Render(usageBar(i.day.Tokens, d.peak, barWidth))

	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s", date, tokens, sessions, bar)
}

// usageBar draws value as a share of peak in at most width cells
func usageBar(value, peak int64, width int) string {
	if width <= 0 || peak <= 0 || value <= 0 {
		return ""
	}
	n := int(value * int64(width) / peak)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// ============================================================================
// Search Result Item
// ============================================================================

// resultItem wraps a SearchResult for the list component
type resultItem struct {
	result session.SearchResult
}

func (i resultItem) FilterValue() string { return i.result.MatchedContent }
func (i resultItem) Title() string       { return i.result.MatchType }
func (i resultItem) Description() string { return oneLine(i.result.MatchedContent) }

// resultDelegate renders search hits
type resultDelegate struct {
	width int
}

func newResultDelegate() *resultDelegate {
	return &resultDelegate{width: 80}
}

func (d *resultDelegate) SetWidth(w int)                           { d.width = w }
func (d *resultDelegate) Height() int                              { return 2 }
func (d *resultDelegate) Spacing() int                             { return 0 }
func (d *resultDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *resultDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(resultItem)
	if !ok {
		return
	}
	r := i.result

	style := KindStyle(r.MatchType)
	if index == m.Index() {
		style = style.Background(selectedBg())
	}

	kind := style.Render(padRight(r.MatchType, ResultTypeWidth))
	when := TimestampStyle().Render(padRight(formatTimeAgo(r.Timestamp), ResultTimeWidth))
	where := MutedStyle().Render(truncate(filepath.Base(r.Project)+" "+r.SessionID,
		max(d.width-ResultTypeWidth-ResultTimeWidth-4, 10)))
	content := truncate(oneLine(r.MatchedContent), max(d.width-3, 10))

	_, _ = fmt.Fprintf(w, "%s  %s  %s\n   %s", kind, when, where, content)
}

// ============================================================================
// Helper Functions
// ============================================================================

// formatTimeAgo renders an ISO-8601 timestamp relative to now. Values that
// do not parse are shown as given, and empty values as "-".
func formatTimeAgo(ts string) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// oneLine collapses runs of whitespace, newlines included, to single spaces
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens a string to maxLen runes with ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
