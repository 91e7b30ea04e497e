package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// View renders the UI based on the model state
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.err != nil {
		return ErrorStyle().Render(fmt.Sprintf("Error: %v", m.err))
	}

	var b strings.Builder

	// Header with title and counts
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// View mode tabs
	b.WriteString(m.renderViewTabs())
	b.WriteString("\n")

	// Main content area based on view mode
	switch m.viewMode {
	case ViewSessions:
		b.WriteString(m.withDetail(m.renderSessionHeaders() + "\n" + m.sessionList.View()))
	case ViewProjects:
		b.WriteString(m.renderProjectHeaders())
		b.WriteString("\n")
		b.WriteString(m.projectList.View())
	case ViewStats:
		b.WriteString(m.renderTotals())
		b.WriteString("\n")
		b.WriteString(m.renderDayHeaders())
		b.WriteString("\n")
		b.WriteString(m.dayList.View())
	case ViewSearch:
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
		b.WriteString(m.withDetail(m.renderResultHeaders() + "\n" + m.renderResults()))
	}

	// Help footer
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

// withDetail places the transcript panel to the right of content when open
func (m Model) withDetail(content string) string {
	if !m.detailPanelOpen {
		return content
	}
	listWidth := max(m.width-4, 20)
	leftWidth := int(float64(listWidth) * 0.58)
	panelWidth := max(listWidth-leftWidth-2, 10)
	panelHeight := max(m.height-8, 5)

	left := lipgloss.NewStyle().Width(leftWidth).Render(content)
	right := DetailPanelStyle(panelWidth, panelHeight).Render(m.renderDetailPanel(panelWidth-2, panelHeight))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// renderHeader renders the top header bar
func (m Model) renderHeader() string {
	title := TitleStyle().Render("Claude Code Sessions")

	var status string
	if len(m.sessions) == 0 && len(m.projects) == 0 {
		status = StatusStyle().Render("No sessions found")
	} else {
		status = StatusStyle().Render(fmt.Sprintf(
			"%s sessions | %s projects",
			humanize.Comma(int64(len(m.sessions))),
			humanize.Comma(int64(len(m.projects))),
		))
	}

	// Project filter indicator
	filter := ""
	if m.projectFilter != "" {
		filter = ActiveIndicatorStyle().Render(" [" + m.filterLabel() + "]")
	}

	// Calculate spacing
	leftPart := lipgloss.Width(title)
	rightPart := lipgloss.Width(status) + lipgloss.Width(filter)
	spacing := m.width - leftPart - rightPart - 4
	if spacing < 1 {
		spacing = 1
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", spacing),
		status,
		filter,
	)
}

// filterLabel names the filtered project by its working directory when known
func (m Model) filterLabel() string {
	for _, p := range m.projects {
		if p.Name == m.projectFilter {
			return filepath.Base(p.ProjectPath)
		}
	}
	return m.projectFilter
}

// renderViewTabs renders the tab bar for view modes
func (m Model) renderViewTabs() string {
	tabs := []struct {
		name string
		mode ViewMode
		key  string
	}{
		{"Sessions", ViewSessions, "1"},
		{"Projects", ViewProjects, "2"},
		{"Stats", ViewStats, "3"},
		{"Search", ViewSearch, "4"},
	}

	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%s %s", t.key, t.name)
		if t.mode == m.viewMode {
			rendered[i] = ActiveTabStyle().Render(label)
		} else {
			rendered[i] = InactiveTabStyle().Render(label)
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	gap := strings.Repeat("─", max(0, m.width-lipgloss.Width(row)-2))

	return row + TabGapStyle().Render(gap)
}

// renderHelp renders the help footer
func (m Model) renderHelp() string {
	var help []string

	switch {
	case m.searchInput.Focused():
		help = []string{"enter:search", "esc:cancel", "ctrl+c:quit"}
	case m.detailPanelOpen:
		help = []string{"j/k:navigate", "J/K:scroll", "pgup/pgdn:page", "esc:close", "q:quit"}
	case m.viewMode == ViewSessions:
		help = []string{"j/k:navigate", "enter:open", "h/l:switch view", "/:search", "r:refresh"}
		if m.projectFilter != "" {
			help = append(help, "esc:all projects")
		}
		help = append(help, "q:quit")
	case m.viewMode == ViewProjects:
		help = []string{"j/k:navigate", "enter:sessions", "h/l:switch view", "esc:back", "q:quit"}
	case m.viewMode == ViewStats:
		help = []string{"j/k:navigate", "h/l:switch view", "r:refresh", "esc:back", "q:quit"}
	case m.viewMode == ViewSearch:
		help = []string{"/:edit query", "j/k:navigate", "enter:open", "h/l:switch view", "esc:back", "q:quit"}
	}

	return HelpStyle().Render(strings.Join(help, " | "))
}

// renderSessionHeaders renders column headers for the session list
func (m Model) renderSessionHeaders() string {
	header := fmt.Sprintf("%s  %s", padRight("Updated", SessionTimeWidth), "Session")
	return ColumnHeaderStyle(m.sessionDelegate.width).Render(header)
}

// renderProjectHeaders renders column headers for the project list
func (m Model) renderProjectHeaders() string {
	header := fmt.Sprintf("%s %s", padLeft("Sessions", ProjectCountWidth), "Project")
	return ColumnHeaderStyle(m.width - 4).Render(header)
}

// renderDayHeaders renders column headers for the per-day usage list
func (m Model) renderDayHeaders() string {
	header := fmt.Sprintf("%s  %s  %s  %s",
		padRight("Date", DayDateWidth),
		padLeft("Tokens", DayTokensWidth),
		padLeft("Sessions", DaySessionsWidth),
		"Usage",
	)
	return ColumnHeaderStyle(m.width - 4).Render(header)
}

// renderResultHeaders renders column headers for search results
func (m Model) renderResultHeaders() string {
	header := fmt.Sprintf("%s  %s  %s",
		padRight("Match", ResultTypeWidth),
		padRight("When", ResultTimeWidth),
		"Where",
	)
	return ColumnHeaderStyle(m.resultDelegate.width).Render(header)
}

// renderResults shows the result list or a hint when there is nothing to show
func (m Model) renderResults() string {
	switch {
	case m.lastQuery == "":
		return MutedStyle().Render("Press / to search")
	case len(m.results) == 0:
		return MutedStyle().Render(fmt.Sprintf("No matches for %q", m.lastQuery))
	default:
		return m.resultList.View()
	}
}

// renderTotals renders the corpus-wide usage line above the day list
func (m Model) renderTotals() string {
	if m.stats == nil {
		return MutedStyle().Render("Loading usage...")
	}
	g := m.stats.Global
	return fmt.Sprintf("%s %s tokens (%s in, %s out) across %s sessions in %s projects",
		LabelStyle().Render("Total:"),
		TokenStyle().Render(humanize.Comma(g.TotalTokens)),
		humanize.Comma(g.TotalInputTokens),
		humanize.Comma(g.TotalOutputTokens),
		humanize.Comma(int64(g.TotalSessions)),
		humanize.Comma(int64(g.TotalProjects)),
	)
}

// padRight pads a string with spaces on the right to reach target width
func padRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}

// padLeft pads a string with spaces on the left to reach target width
func padLeft(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return truncate(s, width)
	}
	return strings.Repeat(" ", width-n) + s
}
