package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCommandsNewestFirst(t *testing.T) {
	ix, _, history := newTestIndex(t)
	writeHistory(t, history,
		`{"display":"first","timestamp":1000,"project":"/a"}`,
		``,
		`{"display":"second","timestamp":2000,"project":"/a"}`,
		`garbage`,
		`   `,
		`{"display":"third","timestamp":3000,"project":"/b","pastedContents":{"1":{"id":1}}}`,
	)

	all := ix.HistoryCommands(100)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Display)
	assert.Equal(t, "second", all[1].Display)
	assert.Equal(t, "first", all[2].Display)
	assert.Equal(t, "/b", all[0].Project)
	assert.Contains(t, all[0].PastedContents, "1")

	// The window covers the last two non-blank lines: "garbage" and "third".
	last := ix.HistoryCommands(2)
	require.Len(t, last, 1)
	assert.Equal(t, "third", last[0].Display)

	assert.Empty(t, ix.HistoryCommands(0))
}

func TestHistoryCommandsRingWraps(t *testing.T) {
	ix, _, history := newTestIndex(t)
	lines := []string{}
	for _, d := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		lines = append(lines, `{"display":"`+d+`","timestamp":1}`)
	}
	writeHistory(t, history, lines...)

	got := ix.HistoryCommands(3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"g", "f", "e"}, []string{got[0].Display, got[1].Display, got[2].Display})
}

func TestHistorySkipsOversizedLine(t *testing.T) {
	ix, _, history := newTestIndex(t)
	writeHistory(t, history,
		`{"display":"deploy early","timestamp":1000}`,
		`{"display":"deploy `+strings.Repeat("x", maxLineSize)+`","timestamp":2000}`,
		`{"display":"deploy late","timestamp":3000}`,
	)

	got := ix.HistoryCommands(10)
	require.Len(t, got, 2)
	assert.Equal(t, "deploy late", got[0].Display)
	assert.Equal(t, "deploy early", got[1].Display)

	results := searchHistory(history, "deploy", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "deploy early", results[0].MatchedContent)
	assert.Equal(t, "deploy late", results[1].MatchedContent)
}

func TestHistoryCommandsMissingFile(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	assert.Empty(t, ix.HistoryCommands(10))
}

func TestCommandRawRoundTrip(t *testing.T) {
	line := `{"display":"hi","timestamp":1700000000000,"extra":{"kept":true}}`
	cmd, ok := decodeCommand([]byte(line))
	require.True(t, ok)

	out, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, line, string(out))
}

func TestCommandMistypedField(t *testing.T) {
	cmd, ok := decodeCommand([]byte(`{"display":"ok","project":42}`))
	require.True(t, ok)
	assert.Equal(t, "ok", cmd.Display)
	assert.Empty(t, cmd.Project)

	_, ok = decodeCommand([]byte(`[1,2]`))
	assert.False(t, ok)
}

func TestCommandTime(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"epoch millis", `1704067200000`, "2024-01-01T00:00:00.000Z", true},
		{"fractional millis", `1704067200123.9`, "2024-01-01T00:00:00.123Z", true},
		{"rfc3339", `"2024-02-01T12:30:00Z"`, "2024-02-01T12:30:00.000Z", true},
		{"offset", `"2024-02-01T12:30:00+02:00"`, "2024-02-01T10:30:00.000Z", true},
		{"date only", `"2024-02-01"`, "2024-02-01T00:00:00.000Z", true},
		{"unparsable string", `"yesterday"`, "", false},
		{"out of range", `1e20`, "", false},
		{"null", `null`, "", false},
		{"object", `{}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ct CommandTime
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ct))
			got, ok := ct.ISO()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCommandTime(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	ct := NewCommandTime(ts)
	got, ok := ct.Time()
	require.True(t, ok)
	assert.True(t, ts.Equal(got))

	var zero CommandTime
	_, ok = zero.Time()
	assert.False(t, ok)
	b, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
