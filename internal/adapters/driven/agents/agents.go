// Package agents holds helpers shared by the per-agent document sources:
// timestamp normalization across the formats vendor logs use, JSONL
// scanning, and display-label truncation.
package agents

import (
	"bufio"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDisplayLen caps the human-readable label stored on documents and
// session summaries.
const MaxDisplayLen = 200

// scanBufSize accommodates single transcript lines carrying large tool
// outputs.
const scanBufSize = 4 * 1024 * 1024

// NewScanner returns a line scanner sized for agent transcript files.
func NewScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	return s
}

// ParseTimestamp normalizes a vendor timestamp string to epoch millis.
// Accepts RFC3339 (with or without fractional seconds). Returns 0 when
// the value cannot be parsed.
func ParseTimestamp(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// EpochMillis normalizes a numeric epoch value to millis. Values small
// enough to be seconds are scaled up.
func EpochMillis(v float64) int64 {
	if v <= 0 {
		return 0
	}
	n := int64(v)
	if n < 1e12 {
		return n * 1000
	}
	return n
}

// Display trims and truncates text into a document label.
func Display(text string) string {
	text = strings.TrimSpace(text)
	if first := strings.IndexByte(text, '\n'); first >= 0 {
		text = strings.TrimSpace(text[:first])
	}
	if utf8.RuneCountInString(text) <= MaxDisplayLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxDisplayLen])
}
