// Package snippet locates query matches inside a document's full text and
// renders context-padded excerpts around them. It is stateless: one call
// site runs it over indexed documents, another over freshly loaded
// sessions.
package snippet

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/tokenizer"
)

// DefaultContextChars is the padding on each side of a match center.
const DefaultContextChars = 150

// maxRecordedPositions bounds the exact scan on huge documents.
const maxRecordedPositions = 100

// Fuzzy match tolerances, shared with the message matcher.
const (
	maxEditDistance = 2
	maxLengthDelta  = 2
)

// Result carries the extracted snippets plus the raw occurrence count.
type Result struct {
	Snippets []domain.Snippet

	// MatchCount is the total number of raw match occurrences found
	// across the whole document. It is not deduplicated and not capped
	// to the snippets actually rendered: it signals how much the
	// document talks about the query, not how many spots are shown.
	MatchCount int
}

// position is one located match: a byte offset plus the query term
// recorded against it.
type position struct {
	offset int
	term   string
}

// Extract finds where query matches inside text and returns up to
// maxSnippets non-overlapping excerpts, each padded by contextChars on
// both sides. Exact substring matches are tried first; fuzzy matching
// only runs when the exact scan finds nothing at all.
func Extract(text, query string, maxSnippets, contextChars int) Result {
	if maxSnippets <= 0 {
		maxSnippets = domain.DefaultMaxSnippets
	}
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}

	queryWords := tokenizer.Tokenize(query)
	if text == "" {
		return Result{Snippets: []domain.Snippet{{Text: ""}}}
	}

	lower := lowerAligned(text)
	positions := exactScan(lower, queryWords)
	if len(positions) == 0 {
		positions = fuzzyScan(text, queryWords)
	}
	if len(positions) == 0 {
		return Result{Snippets: []domain.Snippet{fallbackSnippet(text, contextChars)}}
	}

	centers, terms := selectCenters(positions, maxSnippets, contextChars)

	snippets := make([]domain.Snippet, 0, len(centers))
	for _, center := range centers {
		snippets = append(snippets, renderWindow(text, lower, center, contextChars, queryWords, terms[center]))
	}

	return Result{Snippets: snippets, MatchCount: len(positions)}
}

// lowerAligned lowercases text rune by rune, keeping any rune whose
// lowercase form has a different byte length (Turkish dotted I and the
// like). Every offset into the result is therefore a valid offset into
// the original text.
func lowerAligned(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}

// exactScan records every occurrence of every query word, walking the
// lowercased text left to right. The cursor advances past each hit so
// overlapping occurrences cannot loop.
func exactScan(lower string, queryWords []string) []position {
	var found []position
	for _, word := range queryWords {
		cursor := 0
		for len(found) < maxRecordedPositions {
			idx := strings.Index(lower[cursor:], word)
			if idx < 0 {
				break
			}
			found = append(found, position{offset: cursor + idx, term: word})
			cursor += idx + len(word)
		}
		if len(found) >= maxRecordedPositions {
			break
		}
	}
	return found
}

// fuzzyScan tokenizes the document and records every word within edit
// distance 2 of a query word of comparable length. Only entered when the
// exact scan found nothing, so typo queries still land somewhere without
// paying the scan cost on every search.
func fuzzyScan(text string, queryWords []string) []position {
	var found []position
	for _, tok := range tokenizer.TokenizeOffsets(text) {
		for _, word := range queryWords {
			if lengthDelta(tok.Text, word) > maxLengthDelta {
				continue
			}
			if tokenizer.EditDistance(tok.Text, word) <= maxEditDistance {
				found = append(found, position{offset: tok.Offset, term: word})
				break
			}
		}
	}
	return found
}

func lengthDelta(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}

// selectCenters dedups and sorts positions, then greedily accepts a
// position as a snippet center only when it sits at least 2*contextChars
// past the previously accepted one. That spacing rule is what stops two
// query words ten characters apart from producing two near-identical
// overlapping snippets.
func selectCenters(positions []position, maxSnippets, contextChars int) ([]int, map[int][]string) {
	terms := make(map[int][]string, len(positions))
	offsets := make([]int, 0, len(positions))
	for _, p := range positions {
		if _, seen := terms[p.offset]; !seen {
			offsets = append(offsets, p.offset)
		}
		if !containsString(terms[p.offset], p.term) {
			terms[p.offset] = append(terms[p.offset], p.term)
		}
	}
	sort.Ints(offsets)

	minGap := 2 * contextChars
	centers := make([]int, 0, maxSnippets)
	last := -minGap - 1
	for _, off := range offsets {
		if off-last < minGap {
			continue
		}
		centers = append(centers, off)
		last = off
		if len(centers) >= maxSnippets {
			break
		}
	}
	return centers, terms
}

// renderWindow clamps [center-contextChars, center+contextChars] to the
// text, trims it, and pads with ellipses on the truncated sides.
// MatchTerms is the union of query words appearing anywhere in the
// rendered text and the terms recorded against this exact center.
func renderWindow(text, lower string, center, contextChars int, queryWords, centerTerms []string) domain.Snippet {
	start := center - contextChars
	if start < 0 {
		start = 0
	}
	end := center + contextChars
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	rendered := strings.TrimSpace(text[start:end])
	if start > 0 {
		rendered = "..." + rendered
	}
	if end < len(text) {
		rendered += "..."
	}

	renderedLower := strings.ToLower(rendered)
	var matchTerms []string
	for _, word := range queryWords {
		if strings.Contains(renderedLower, word) {
			matchTerms = appendUnique(matchTerms, word)
		}
	}
	for _, term := range centerTerms {
		matchTerms = appendUnique(matchTerms, term)
	}

	return domain.Snippet{Text: rendered, MatchTerms: matchTerms}
}

// fallbackSnippet shows the head of the document when nothing matched at
// all but the document was still selected as a hit.
func fallbackSnippet(text string, contextChars int) domain.Snippet {
	limit := 2 * contextChars
	if len(text) <= limit {
		return domain.Snippet{Text: strings.TrimSpace(text)}
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return domain.Snippet{Text: strings.TrimSpace(text[:limit]) + "..."}
}

func appendUnique(list []string, s string) []string {
	if containsString(list, s) {
		return list
	}
	return append(list, s)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
