package collision

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LayoutMarker opens the grid section of a layout file.
const LayoutMarker = "[Layout]"

// MaxLayoutLineBytes caps the length of one layout line, about two million
// single-digit columns.
const MaxLayoutLineBytes = 4 << 20

// FormatError reports a malformed layout. Line is 1-based; it is 0 when the
// problem is not tied to a single line (for example a missing section).
type FormatError struct {
	Line   int
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "collision: layout"
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// LoadLayout parses a layout from r.
//
// Lines before the one containing LayoutMarker are ignored. Every non-empty
// line after it is a row of whitespace-separated integer codes, and all rows
// must have the same number of columns. No layer is returned on error.
func LoadLayout(r io.Reader, cfg Config) (*Layer, error) {
	var (
		rows    [][]int
		reading bool
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLayoutLineBytes)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, LayoutMarker) {
			reading = true
			continue
		}
		if !reading {
			continue
		}

		fields := strings.Fields(line)
		row := make([]int, len(fields))
		for i, f := range fields {
			code, err := strconv.Atoi(f)
			if err != nil {
				return nil, &FormatError{
					Line:   lineNo,
					Reason: fmt.Sprintf("cell %d is not an integer", i+1),
					Err:    err,
				}
			}
			row[i] = code
		}

		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, &FormatError{
				Line:   lineNo,
				Reason: fmt.Sprintf("row has %d columns, expected %d", len(row), len(rows[0])),
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &FormatError{
				Line:   lineNo + 1,
				Reason: fmt.Sprintf("line longer than %d bytes", MaxLayoutLineBytes),
				Err:    err,
			}
		}
		return nil, fmt.Errorf("collision: read layout: %w", err)
	}

	if !reading {
		return nil, &FormatError{Reason: "missing " + LayoutMarker + " section"}
	}
	if len(rows) == 0 {
		return nil, &FormatError{Reason: LayoutMarker + " section has no rows"}
	}

	layer := NewLayer(len(rows), len(rows[0]), cfg)
	for y, row := range rows {
		for x, code := range row {
			layer.Set(x, y, code)
		}
	}
	return layer, nil
}

// LoadLayoutFile opens path and parses it with LoadLayout.
func LoadLayoutFile(path string, cfg Config) (*Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("collision: open layout: %w", err)
	}
	defer f.Close()

	return LoadLayout(f, cfg)
}

// MustLoadLayout is LoadLayout for layouts embedded in code; it panics on error.
func MustLoadLayout(src string, cfg Config) *Layer {
	layer, err := LoadLayout(strings.NewReader(src), cfg)
	if err != nil {
		panic(err)
	}
	return layer
}
