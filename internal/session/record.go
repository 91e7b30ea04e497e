package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// Record is one decoded line of a session transcript.
// Only the fields the indexer reads are typed; the original bytes are kept
// so the record can be served back unchanged.
type Record struct {
	Type      string    `json:"type"`
	Timestamp string    `json:"timestamp"`
	IsMeta    bool      `json:"isMeta"`
	Slug      string    `json:"slug"`
	CWD       string    `json:"cwd"`
	Message   *Message  `json:"message,omitempty"`
	Data      *Data     `json:"data,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`

	raw json.RawMessage
}

// Message represents the message field in a transcript record
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
	Usage   *Usage  `json:"usage,omitempty"`
}

// Usage holds per-message token accounting
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// UnmarshalJSON accepts token counts written as integers or floats.
// A count that is not a number decodes as zero; usage never fails a record.
func (u *Usage) UnmarshalJSON(b []byte) error {
	*u = Usage{}
	var raw struct {
		InputTokens  json.RawMessage `json:"input_tokens"`
		OutputTokens json.RawMessage `json:"output_tokens"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	u.InputTokens = tokenCount(raw.InputTokens)
	u.OutputTokens = tokenCount(raw.OutputTokens)
	return nil
}

func tokenCount(b json.RawMessage) int64 {
	var n json.Number
	if len(b) == 0 || json.Unmarshal(b, &n) != nil {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// Data is the payload of progress and hook records
type Data struct {
	CWD     string `json:"cwd"`
	Type    string `json:"type"`
	Command string `json:"command"`
}

// Snapshot carries the timestamp of file-history snapshot records
type Snapshot struct {
	Timestamp string `json:"timestamp"`
}

// UnmarshalJSON decodes a record, tolerating fields of the wrong JSON type.
// A mistyped field is left at its zero value instead of dropping the record.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*r = Record(p)
	r.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON returns the record exactly as it was read.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain Record
	return json.Marshal(plain(r))
}

// Usage returns the token usage of the record, if any.
func (r *Record) Usage() (*Usage, bool) {
	if r.Message == nil || r.Message.Usage == nil {
		return nil, false
	}
	return r.Message.Usage, true
}

// Content returns the message content, or an empty Content.
func (r *Record) Content() Content {
	if r.Message == nil {
		return Content{}
	}
	return r.Message.Content
}

// ContentKind identifies which JSON shape a message content had.
type ContentKind int

const (
	ContentNone   ContentKind = iota // absent, null or a scalar other than string
	ContentText                      // a JSON string
	ContentBlocks                    // a JSON array of blocks
	ContentObject                    // a single JSON object
)

// Content is message content decoded into one of a closed set of shapes.
type Content struct {
	Kind   ContentKind
	Text   string
	Blocks []json.RawMessage
	Object json.RawMessage
}

// UnmarshalJSON selects the variant from the first significant byte. It never fails.
func (c *Content) UnmarshalJSON(b []byte) error {
	*c = Content{}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &c.Text); err == nil {
			c.Kind = ContentText
		}
	case '[':
		if err := json.Unmarshal(trimmed, &c.Blocks); err == nil {
			c.Kind = ContentBlocks
		}
	case '{':
		c.Kind = ContentObject
		c.Object = append(json.RawMessage(nil), trimmed...)
	}
	return nil
}

// MarshalJSON re-encodes the content in its original shape.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(c.Text)
	case ContentBlocks:
		return json.Marshal(c.Blocks)
	case ContentObject:
		return c.Object, nil
	default:
		return []byte("null"), nil
	}
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PreviewText returns the text shown as a session preview: the string
// itself, the first block typed "text", or an object's text field.
func (c Content) PreviewText() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentBlocks:
		for _, raw := range c.Blocks {
			var blk textBlock
			if json.Unmarshal(raw, &blk) != nil {
				continue
			}
			if blk.Type == "text" {
				return blk.Text
			}
		}
	case ContentObject:
		return objectText(c.Object)
	}
	return ""
}

// SearchText returns the text matched by the search engine. Blocks are
// joined with a space, each contributing its text field, its string value,
// or its compact JSON encoding.
func (c Content) SearchText() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentBlocks:
		parts := make([]string, 0, len(c.Blocks))
		for _, raw := range c.Blocks {
			parts = append(parts, blockSearchText(raw))
		}
		return strings.Join(parts, " ")
	case ContentObject:
		return objectText(c.Object)
	}
	return ""
}

// HasText reports whether the content contributes anything searchable.
func (c Content) HasText() bool {
	switch c.Kind {
	case ContentText:
		return c.Text != ""
	case ContentBlocks:
		return true
	case ContentObject:
		return objectText(c.Object) != ""
	}
	return false
}

func blockSearchText(raw json.RawMessage) string {
	var blk textBlock
	if json.Unmarshal(raw, &blk) == nil && blk.Text != "" {
		return blk.Text
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}

func objectText(raw json.RawMessage) string {
	var obj struct {
		Text json.RawMessage `json:"text"`
	}
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	var s string
	if json.Unmarshal(obj.Text, &s) != nil {
		return ""
	}
	return s
}
