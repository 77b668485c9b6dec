// Package matcher decides which individual messages of a session match a
// query, and builds context windows around the matches. It deliberately
// stays separate from the corpus index: that one ranks documents, this
// one yes/no-matches short strings. The two share only the tokenizer.
package matcher

import (
	"strings"

	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/tokenizer"
)

// Fuzzy tolerances, same contract as snippet extraction.
const (
	maxEditDistance = 2
	maxLengthDelta  = 2
)

// QueryWords tokenizes a query for repeated use against many messages.
func QueryWords(query string) []string {
	return tokenizer.Tokenize(query)
}

// Matches reports whether a message text satisfies every query word.
// The exact path requires each word as a case-insensitive substring; only
// when that fails does the fuzzy path tokenize the message and look for a
// token within edit distance 2 of each word. AND semantics throughout:
// every query word must be satisfied independently.
//
// An empty word list never matches; matching mode requires a query.
func Matches(text string, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}

	lower := strings.ToLower(text)
	exact := true
	for _, word := range queryWords {
		if !strings.Contains(lower, word) {
			exact = false
			break
		}
	}
	if exact {
		return true
	}

	tokens := tokenizer.Tokenize(text)
	for _, word := range queryWords {
		if !anyTokenClose(tokens, word) {
			return false
		}
	}
	return true
}

func anyTokenClose(tokens []string, word string) bool {
	for _, tok := range tokens {
		if lengthDelta(tok, word) > maxLengthDelta {
			continue
		}
		if tokenizer.EditDistance(tok, word) <= maxEditDistance {
			return true
		}
	}
	return false
}

func lengthDelta(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}

// FindFirst returns the index of the first matching message, or -1.
func FindFirst(messages []domain.Message, queryWords []string) int {
	for i := range messages {
		if Matches(messages[i].Text, queryWords) {
			return i
		}
	}
	return -1
}

// FindAll returns every matching message index in order. maxMatches caps
// the number of match locations considered (not messages returned),
// keeping the first ones in document order; zero means unlimited.
func FindAll(messages []domain.Message, queryWords []string, maxMatches int) []int {
	var matches []int
	for i := range messages {
		if !Matches(messages[i].Text, queryWords) {
			continue
		}
		matches = append(matches, i)
		if maxMatches > 0 && len(matches) >= maxMatches {
			break
		}
	}
	return matches
}

// Window is a contiguous range of message indices built around one or
// more matches, inclusive on both ends.
type Window struct {
	Start int
	End   int

	// Matched holds the original match indices inside this window.
	Matched []int
}

// ContextWindows builds a window [idx-contextWindow, idx+contextWindow]
// clamped to [0, total) around each match, then merges windows that touch
// or overlap. Matches must be in ascending order, so merging is a single
// running accumulator.
func ContextWindows(matches []int, contextWindow, total int) []Window {
	var windows []Window
	for _, idx := range matches {
		start := idx - contextWindow
		if start < 0 {
			start = 0
		}
		end := idx + contextWindow
		if end > total-1 {
			end = total - 1
		}

		if n := len(windows); n > 0 && start <= windows[n-1].End+1 {
			last := &windows[n-1]
			if end > last.End {
				last.End = end
			}
			last.Matched = append(last.Matched, idx)
			continue
		}
		windows = append(windows, Window{Start: start, End: end, Matched: []int{idx}})
	}
	return windows
}
