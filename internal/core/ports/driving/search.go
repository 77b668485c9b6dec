package driving

import (
	"context"

	"github.com/retracehq/retrace/internal/core/domain"
)

// SearchService answers ranked, filtered full-text queries over the
// corpus of all agent documents.
type SearchService interface {
	// Search returns results ordered by descending score. An empty
	// query, or one matching nothing, returns an empty list.
	Search(ctx context.Context, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
