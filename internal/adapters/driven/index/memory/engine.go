// Package memory provides an in-memory inverted-index implementation of
// driven.SearchEngine. The corpus is rebuilt from scratch each process
// lifetime, so nothing is persisted and entries are never removed.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/tokenizer"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

// Field boosts: document text outweighs the project path 2:1.
var fieldBoosts = map[string]float64{
	driven.FieldText:    2.0,
	driven.FieldProject: 1.0,
}

// Term-match weights. Exact token matches count full, prefix and fuzzy
// expansions are discounted.
const (
	weightExact  = 1.0
	weightPrefix = 0.5
	weightFuzzy  = 0.45
)

// Fuzzy expansion tolerances, matching the shared tokenizer contract.
const (
	maxEditDistance = 2
	maxLengthDelta  = 2
)

// entry is one indexed document.
type entry struct {
	id     string
	stored driven.StoredFields
}

// postings maps document ordinal -> field -> term frequency.
type postings map[int]map[string]int

// Engine is a TF-IDF scored inverted index over tokenized fields.
type Engine struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]postings
}

// NewEngine creates an empty index.
func NewEngine() *Engine {
	return &Engine{index: make(map[string]postings)}
}

// Index adds a document's fields to the index. Tokenization follows the
// shared tokenizer contract, so what counts as a word here matches the
// snippet extractor and the message matcher.
func (e *Engine) Index(_ context.Context, id string, fields map[string]string, stored driven.StoredFields) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ordinal := len(e.entries)
	e.entries = append(e.entries, entry{id: id, stored: stored})

	for field, value := range fields {
		for _, term := range tokenizer.Tokenize(value) {
			p, ok := e.index[term]
			if !ok {
				p = make(postings)
				e.index[term] = p
			}
			tfs, ok := p[ordinal]
			if !ok {
				tfs = make(map[string]int)
				p[ordinal] = tfs
			}
			tfs[field]++
		}
	}
	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// Search scores every document matching at least one query term, OR
// semantics across terms. Each query term matches index terms exactly,
// by prefix, and (when fuzzy is on) within edit distance 2 at comparable
// length. Raw scores are plain TF-IDF with field boosts: any correction
// for document length is deliberately left to the caller.
func (e *Engine) Search(_ context.Context, query string, fuzzy bool) ([]driven.Hit, error) {
	queryWords := tokenizer.Tokenize(query)
	if len(queryWords) == 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	total := len(e.entries)
	if total == 0 {
		return nil, nil
	}

	scores := make(map[int]float64)
	matched := make(map[int]map[string]bool)

	for _, word := range queryWords {
		for term, weight := range e.expandTerm(word, fuzzy) {
			p := e.index[term]
			idf := math.Log(1 + float64(total)/float64(1+len(p)))
			for ordinal, tfs := range p {
				for field, tf := range tfs {
					scores[ordinal] += weight * fieldBoosts[field] * float64(tf) * idf
				}
				terms, ok := matched[ordinal]
				if !ok {
					terms = make(map[string]bool)
					matched[ordinal] = terms
				}
				terms[word] = true
			}
		}
	}

	hits := make([]driven.Hit, 0, len(scores))
	for ordinal, score := range scores {
		ent := e.entries[ordinal]
		hits = append(hits, driven.Hit{
			ID:     ent.id,
			Score:  score,
			Fields: ent.stored,
			Terms:  sortedKeys(matched[ordinal]),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// expandTerm maps a query word to the index terms it matches, keeping
// the strongest weight when a term qualifies more than one way.
func (e *Engine) expandTerm(word string, fuzzy bool) map[string]float64 {
	expanded := make(map[string]float64)
	for term := range e.index {
		w := termWeight(term, word, fuzzy)
		if w > expanded[term] {
			expanded[term] = w
		}
	}
	for term, w := range expanded {
		if w == 0 {
			delete(expanded, term)
		}
	}
	return expanded
}

func termWeight(term, word string, fuzzy bool) float64 {
	if term == word {
		return weightExact
	}
	if !fuzzy {
		return 0
	}
	if len(term) > len(word) && term[:len(word)] == word {
		return weightPrefix
	}
	if lengthDelta(term, word) <= maxLengthDelta &&
		tokenizer.EditDistance(term, word) <= maxEditDistance {
		return weightFuzzy
	}
	return 0
}

func lengthDelta(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
