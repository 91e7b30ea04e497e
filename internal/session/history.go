package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"strings"
	"time"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// maxEpochMillis is the largest representable JavaScript date offset.
const maxEpochMillis = 8.64e15

// Command is one line of the global prompt history
type Command struct {
	Display        string         `json:"display"`
	PastedContents map[string]any `json:"pastedContents,omitempty"`
	Timestamp      CommandTime    `json:"timestamp"`
	Project        string         `json:"project"`
	SessionID      string         `json:"sessionId,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes a history line, zeroing mistyped fields instead of failing.
func (c *Command) UnmarshalJSON(b []byte) error {
	type plain Command
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*c = Command(p)
	c.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON returns the history line exactly as it was read.
func (c Command) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type plain Command
	return json.Marshal(plain(c))
}

// CommandTime is a history timestamp, either epoch milliseconds or a date string.
type CommandTime struct {
	raw json.RawMessage
}

// NewCommandTime returns a CommandTime holding epoch milliseconds.
func NewCommandTime(t time.Time) CommandTime {
	b, _ := json.Marshal(t.UnixMilli())
	return CommandTime{raw: b}
}

// UnmarshalJSON keeps the raw value; interpretation happens in Time.
func (t *CommandTime) UnmarshalJSON(b []byte) error {
	t.raw = append(json.RawMessage(nil), bytes.TrimSpace(b)...)
	return nil
}

// MarshalJSON re-encodes the original value.
func (t CommandTime) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

var commandTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time interprets the timestamp. Numbers are epoch milliseconds.
func (t CommandTime) Time() (time.Time, bool) {
	if len(t.raw) == 0 || bytes.Equal(t.raw, []byte("null")) {
		return time.Time{}, false
	}

	var ms float64
	if err := json.Unmarshal(t.raw, &ms); err == nil {
		if math.IsNaN(ms) || math.Abs(ms) > maxEpochMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}

	var s string
	if err := json.Unmarshal(t.raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range commandTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// ISO returns the timestamp formatted as ISO-8601 with millisecond precision.
func (t CommandTime) ISO() (string, bool) {
	parsed, ok := t.Time()
	if !ok {
		return "", false
	}
	return parsed.Format(isoLayout), true
}

func decodeCommand(line []byte) (Command, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Command{}, false
	}
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return Command{}, false
	}
	return cmd, true
}

// readHistory returns the last limit decodable commands, newest first.
// Only the last limit non-blank lines are considered.
func readHistory(path string, limit int) []Command {
	if limit <= 0 {
		return []Command{}
	}

	file, err := os.Open(path) //nolint:gosec // configured history path
	if err != nil {
		return []Command{}
	}
	defer file.Close()

	// Ring of the last limit non-blank lines.
	ring := make([][]byte, 0, min(limit, 1024))
	next := 0

	scanLines(file, func(raw []byte) bool {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			return true
		}
		cp := append([]byte(nil), line...)
		if len(ring) < limit {
			ring = append(ring, cp)
			return true
		}
		ring[next] = cp
		next = (next + 1) % limit
		return true
	})

	// Walk newest to oldest.
	commands := make([]Command, 0, len(ring))
	for i := range ring {
		idx := (next - 1 - i + 2*len(ring)) % len(ring)
		if cmd, ok := decodeCommand(ring[idx]); ok {
			commands = append(commands, cmd)
		}
	}
	return commands
}

// searchHistory matches query against each command's display text, oldest
// line first, stopping at limit hits.
func searchHistory(path, query string, limit int) []SearchResult {
	results := []SearchResult{}
	if limit <= 0 {
		return results
	}

	file, err := os.Open(path) //nolint:gosec // configured history path
	if err != nil {
		return results
	}
	defer file.Close()

	needle := strings.ToLower(query)

	scanLines(file, func(line []byte) bool {
		cmd, ok := decodeCommand(line)
		if !ok || cmd.Display == "" {
			return true
		}
		if !strings.Contains(strings.ToLower(cmd.Display), needle) {
			return true
		}

		ts, _ := cmd.Timestamp.ISO()
		results = append(results, SearchResult{
			SessionID:      cmd.SessionID,
			Project:        cmd.Project,
			Timestamp:      ts,
			MatchedContent: truncateRunes(cmd.Display, matchRunes),
			MatchType:      MatchCommand,
		})
		return len(results) < limit
	})

	return results
}
