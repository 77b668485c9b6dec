package driven

import (
	"context"

	"github.com/retracehq/retrace/internal/core/domain"
)

// Field names the engine indexes. Text is boosted 2:1 over Project.
const (
	FieldText    = "text"
	FieldProject = "project"
)

// StoredFields is the metadata kept alongside each index entry so hits
// can be filtered without resolving the full document first.
type StoredFields struct {
	Agent     string
	SessionID string
	Timestamp int64
	Project   string
	Type      domain.DocumentType
	FilePath  string
	Display   string
}

// Hit is one engine match before filtering and length normalisation.
type Hit struct {
	// ID is the matched document id.
	ID string

	// Score is the engine-native relevance before any correction.
	Score float64

	// Fields is the stored metadata for filter stages.
	Fields StoredFields

	// Terms are the query terms that matched this document.
	Terms []string
}

// SearchEngine is an inverted full-text index over the corpus.
// The core builds it once per process and never patches it in place.
type SearchEngine interface {
	// Index adds a document's searchable fields and stored metadata.
	Index(ctx context.Context, id string, fields map[string]string, stored StoredFields) error

	// Search runs a fuzzy/prefix full-text query and returns scored hits.
	// With fuzzy false, only exact token matches count.
	Search(ctx context.Context, query string, fuzzy bool) ([]Hit, error)
}
