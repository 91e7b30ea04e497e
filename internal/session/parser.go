package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	scanBufferSize = 64 * 1024
	maxLineSize    = 16 * 1024 * 1024 // 16MB max line size
	tailWindow     = 64 * 1024
)

// decodeLine parses one transcript line. Blank lines, lines that are not
// JSON objects and lines that fail to decode are rejected.
func decodeLine(line []byte) (Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// scanLines calls fn with each newline-terminated line of r until fn returns
// false or the reader is exhausted. A line longer than maxLineSize is skipped
// and reading resumes at the next line. The slice passed to fn is only valid
// for the duration of the call.
func scanLines(r io.Reader, fn func(line []byte) bool) {
	br := bufio.NewReaderSize(r, scanBufferSize)
	var pending []byte
	skipping := false

	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !skipping && len(pending)+len(chunk) <= maxLineSize {
				pending = append(pending, chunk...)
			} else {
				skipping = true
				pending = pending[:0]
			}
			continue
		}

		if len(chunk) > 0 || len(pending) > 0 {
			line := chunk
			if len(pending) > 0 {
				pending = append(pending, chunk...)
				line = pending
			}
			if len(line) > maxLineSize {
				skipping = true
			}
			if !skipping && !fn(line) {
				return
			}
		}
		pending = pending[:0]
		skipping = false

		if err != nil {
			return
		}
	}
}

// ParseJSONL decodes line-delimited records from r in order.
// When limit > 0 only the first limit decoded records are returned.
// Lines over maxLineSize are skipped. A read error ends the scan and
// returns what was decoded so far.
func ParseJSONL(r io.Reader, limit int) []Record {
	records := make([]Record, 0, 16)

	scanLines(r, func(line []byte) bool {
		rec, ok := decodeLine(line)
		if !ok {
			return true
		}
		records = append(records, rec)
		return limit <= 0 || len(records) < limit
	})

	return records
}

// ReadJSONL reads a transcript file. An unreadable file yields an empty slice.
func ReadJSONL(path string, limit int) []Record {
	file, err := os.Open(path) //nolint:gosec // paths come from the projects directory listing
	if err != nil {
		return []Record{}
	}
	defer file.Close()

	return ParseJSONL(file, limit)
}

// ReadJSON reads a whole file as a single JSON document.
// The zero value and false are returned on any error.
func ReadJSON[T any](path string) (T, bool) {
	var v T
	data, err := os.ReadFile(path) //nolint:gosec // caller-controlled path
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// ReadLastRecord decodes the last valid record of a transcript without
// reading the whole file. The tail window doubles until a record is found
// or the start of the file is reached.
func ReadLastRecord(path string) (Record, bool) {
	rec, err := readLastRecord(path)
	if err != nil {
		return Record{}, false
	}
	return rec, true
}

var errNoRecord = errors.New("no decodable record")

func readLastRecord(path string) (Record, error) {
	file, err := os.Open(path) //nolint:gosec // paths come from the projects directory listing
	if err != nil {
		return Record{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Record{}, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	for window := int64(tailWindow); ; window *= 2 {
		start := max(size-window, 0)

		chunk := make([]byte, size-start)
		if _, err := file.ReadAt(chunk, start); err != nil && err != io.EOF {
			return Record{}, fmt.Errorf("read tail of %s: %w", path, err)
		}

		lines := bytes.Split(chunk, []byte{'\n'})
		// The first fragment may be cut mid-line unless we hold the whole file.
		first := 0
		if start > 0 {
			first = 1
		}
		for i := len(lines) - 1; i >= first; i-- {
			if rec, ok := decodeLine(lines[i]); ok {
				return rec, nil
			}
		}

		if start == 0 {
			return Record{}, errNoRecord
		}
	}
}
