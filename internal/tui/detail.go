package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"cc_session_mgr/internal/session"
)

// maxTurnLines caps how much of one message the panel shows
const maxTurnLines = 12

// renderDetailPanel renders the transcript side panel
func (m Model) renderDetailPanel(width, height int) string {
	var b strings.Builder

	// Panel header
	header := DetailHeaderStyle(width).Render("Session " + truncate(m.detailSessionID, max(width-8, 4)))
	b.WriteString(header)
	b.WriteString("\n")

	if m.loadingDetail {
		b.WriteString(MutedStyle().Render("Loading..."))
		return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
	}

	if m.detailError != nil {
		b.WriteString(ErrorStyle().Render(fmt.Sprintf("Error: %v", m.detailError)))
		return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
	}

	if m.detail == nil {
		b.WriteString(MutedStyle().Render("Select a session and press Enter"))
		return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
	}

	b.WriteString(LabelStyle().Render("Project: "))
	b.WriteString(PathStyle().Render(truncate(m.detail.Project, max(width-9, 4))))
	b.WriteString("\n")
	b.WriteString(LabelStyle().Render("Records: "))
	b.WriteString(humanize.Comma(int64(m.detail.MessageCount)))
	b.WriteString("\n\n")

	// Header uses five rows; the rest scrolls
	lines := transcriptLines(m.detail, width)
	visible := max(height-5, 1)
	start := min(m.detailOffset, max(len(lines)-visible, 0))
	end := min(start+visible, len(lines))
	if len(lines) == 0 {
		b.WriteString(MutedStyle().Render("No conversation text in this session"))
	} else {
		b.WriteString(strings.Join(lines[start:end], "\n"))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
}

// transcriptLines flattens the readable turns of a transcript into display lines
func transcriptLines(detail *session.SessionDetail, width int) []string {
	var lines []string
	for i := range detail.Messages {
		rec := &detail.Messages[i]
		if rec.IsMeta || (rec.Type != session.MatchUser && rec.Type != session.MatchAssistant) {
			continue
		}
		text := strings.TrimSpace(rec.Content().SearchText())
		if text == "" {
			continue
		}

		heading := KindStyle(rec.Type).Render(strings.ToUpper(rec.Type))
		if rec.Timestamp != "" {
			heading += "  " + TimestampStyle().Render(formatTimeAgo(rec.Timestamp))
		}
		lines = append(lines, heading)
		body := truncateMultiline(wrapText(text, width-2), width-2, maxTurnLines)
		lines = append(lines, strings.Split(body, "\n")...)
		lines = append(lines, "")
	}
	return lines
}

// wrapText wraps text at word boundaries to fit within width
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		lineLen := 0
		for _, word := range strings.Fields(line) {
			wordLen := lipgloss.Width(word)
			if lineLen+wordLen+1 > width && lineLen > 0 {
				result.WriteString("\n")
				lineLen = 0
			}
			if lineLen > 0 {
				result.WriteString(" ")
				lineLen++
			}
			// Truncate very long words
			if wordLen > width {
				word = truncate(word, width)
				wordLen = width
			}
			result.WriteString(word)
			lineLen += wordLen
		}
	}

	return result.String()
}

// truncateMultiline truncates text to maxLines and width
func truncateMultiline(text string, width, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "...")
	}
	for i, line := range lines {
		// Replace tabs with spaces for consistent display
		lines[i] = truncate(strings.ReplaceAll(line, "\t", "  "), width)
	}
	return strings.Join(lines, "\n")
}
