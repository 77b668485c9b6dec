// Package tokenizer is the single source of truth for word splitting and
// edit distance. Indexing, snippet extraction, and message matching all
// tokenize through here so fuzzy behaviour is consistent everywhere.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// separators is the fixed punctuation set that terminates a token, in
// addition to any unicode whitespace.
const separators = "-_./\\:,;()[]{}<>'\""

// Token is a word with its byte offset in the original text.
type Token struct {
	Text   string
	Offset int
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(separators, r)
}

// Tokenize splits text into ordered lowercase word tokens, discarding
// tokens of length one or less.
func Tokenize(text string) []string {
	toks := TokenizeOffsets(text)
	if len(toks) == 0 {
		return nil
	}
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Text
	}
	return words
}

// TokenizeOffsets splits text like Tokenize but keeps each token's byte
// offset, for callers that map matches back into the original text.
func TokenizeOffsets(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if isSeparator(r) {
			if start >= 0 {
				appendToken(&tokens, text[start:i], start)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		appendToken(&tokens, text[start:], start)
	}
	return tokens
}

func appendToken(tokens *[]Token, word string, offset int) {
	if utf8.RuneCountInString(word) <= 1 {
		return
	}
	*tokens = append(*tokens, Token{Text: strings.ToLower(word), Offset: offset})
}

// EditDistance computes the Levenshtein distance between a and b with
// unit-cost inserts, deletes, and substitutions. It keeps a single DP row,
// so memory is O(len(b)). Callers bound input size; this is meant for
// short word tokens.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cur := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[j] = min3(row[j]+1, row[j-1]+1, prev+cost)
			prev = cur
		}
	}
	return row[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
