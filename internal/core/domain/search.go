package domain

// SearchOptions configures a corpus search.
type SearchOptions struct {
	// Query is the full-text query. Empty queries return no results.
	Query string

	// Agents filters to specific sources. Empty means all.
	Agents []string

	// DateFrom and DateTo bound the document timestamp in epoch
	// milliseconds. Both bounds are inclusive. Zero means unbounded.
	// Documents without a timestamp always pass.
	DateFrom int64
	DateTo   int64

	// Project is a case-insensitive substring match against the
	// document's project. Documents without a project always pass.
	Project string

	// Types filters by document type. Empty means no filtering.
	Types []DocumentType

	// Fuzzy enables edit-distance tolerance on query terms.
	Fuzzy bool

	// MinMessageCount excludes conversations with fewer messages.
	// Documents without a message count always pass. Zero disables.
	MinMessageCount int

	// Limit caps the number of results.
	Limit int

	// MaxSnippets caps snippets per result.
	MaxSnippets int
}

// Search defaults.
const (
	DefaultSearchLimit = 20
	DefaultMaxSnippets = 3
)

// DefaultSearchOptions returns options with the documented defaults:
// all agents, fuzzy matching on, limit 20, three snippets.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Fuzzy:       true,
		Limit:       DefaultSearchLimit,
		MaxSnippets: DefaultMaxSnippets,
	}
}

// Snippet is a bounded excerpt of a document's text centered on a match.
type Snippet struct {
	// Text is the rendered excerpt, ellipsis-padded when truncated.
	Text string

	// MatchTerms are the query terms that matched inside this snippet.
	MatchTerms []string
}

// SearchResult is a ranked, decorated view of a document for one query.
// It is derived per query, never persisted.
type SearchResult struct {
	Document

	// Score is the relevance score after length normalisation.
	Score float64

	// MatchedText equals the first snippet's text, or "" without snippets.
	MatchedText string

	// Snippets are the context windows around matches.
	Snippets []Snippet

	// MatchCount is the total number of raw match occurrences found in
	// the whole document, not just the shown snippets.
	MatchCount int
}
