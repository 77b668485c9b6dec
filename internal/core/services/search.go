package services

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/core/ports/driving"
	"github.com/retracehq/retrace/internal/logger"
	"github.com/retracehq/retrace/internal/snippet"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Length penalty parameters. Long documents accumulate inflated raw
// relevance from sheer term frequency, which buries short specific
// matches like single user prompts. Scores are dampened after retrieval
// rather than baked into index weights: the penalty corrects the
// engine's ranking, it does not replace it.
const (
	penaltyBaseline = 500
	penaltyFactor   = 0.5
)

// SearchService builds the corpus index lazily on first search and
// answers filtered, ranked queries against it. The index is built once
// per process lifetime and never invalidated within a run.
type SearchService struct {
	sources []driven.AgentSource
	engine  driven.SearchEngine

	group singleflight.Group
	mu    sync.RWMutex
	built bool
	docs  map[string]domain.Document
}

// NewSearchService creates a search service over the given sources.
// Nothing is indexed until the first Search call.
func NewSearchService(engine driven.SearchEngine, sources ...driven.AgentSource) *SearchService {
	return &SearchService{
		sources: sources,
		engine:  engine,
		docs:    make(map[string]domain.Document),
	}
}

// Search runs the full query pipeline: ensure the index is built, run
// the engine query, narrow through the filter stages, normalise scores
// by document length, extract snippets, re-sort, truncate.
func (s *SearchService) Search(ctx context.Context, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")

	query := strings.TrimSpace(opts.Query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	if s.engine == nil {
		return nil, domain.ErrSearchUnavailable
	}

	if err := s.ensureBuilt(ctx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	maxSnippets := opts.MaxSnippets
	if maxSnippets <= 0 {
		maxSnippets = domain.DefaultMaxSnippets
	}
	logger.Debug("Query: %q, limit: %d, fuzzy: %t", query, limit, opts.Fuzzy)

	hits, err := s.engine.Search(ctx, query, opts.Fuzzy)
	if err != nil {
		return nil, fmt.Errorf("engine search: %w", err)
	}
	logger.Debug("Raw engine hits: %d", len(hits))

	hits = filterByAgent(hits, opts.Agents)
	hits = filterByDate(hits, opts.DateFrom, opts.DateTo)
	hits = s.filterByType(hits, opts.Types)
	hits = filterByProject(hits, opts.Project)
	hits = s.filterByMessageCount(hits, opts.MinMessageCount)
	logger.Debug("Hits after filters: %d", len(hits))

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		doc, ok := s.lookup(hit.ID)
		if !ok {
			continue
		}

		extracted := snippet.Extract(doc.Text, query, maxSnippets, snippet.DefaultContextChars)
		matchedText := ""
		if len(extracted.Snippets) > 0 {
			matchedText = extracted.Snippets[0].Text
		}

		results = append(results, domain.SearchResult{
			Document:    doc,
			Score:       normaliseScore(hit.Score, len(doc.Text)),
			MatchedText: matchedText,
			Snippets:    extracted.Snippets,
			MatchCount:  extracted.MatchCount,
		})
	}

	// The length penalty can reorder the engine's native ranking, so
	// re-sort before truncating.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// normaliseScore applies the length penalty: log2(len/500) once the text
// exceeds 500 characters, scaled into the divisor.
func normaliseScore(raw float64, textLen int) float64 {
	if textLen <= penaltyBaseline {
		return raw
	}
	penalty := math.Log2(float64(textLen) / float64(penaltyBaseline))
	return raw / (1 + penalty*penaltyFactor)
}

// ensureBuilt builds the index exactly once. Concurrent first searches
// share a single in-flight build through the singleflight group.
func (s *SearchService) ensureBuilt(ctx context.Context) error {
	s.mu.RLock()
	built := s.built
	s.mu.RUnlock()
	if built {
		return nil
	}

	_, err, _ := s.group.Do("build", func() (any, error) {
		s.mu.RLock()
		built := s.built
		s.mu.RUnlock()
		if built {
			return nil, nil
		}
		return nil, s.build(ctx)
	})
	return err
}

// build collects documents from every source, dedups them by id keeping
// the first occurrence, and feeds them to the engine. A source failing
// to enumerate loses only its own contribution.
func (s *SearchService) build(ctx context.Context) error {
	logger.Section("Index Build")

	var collected []domain.Document
	for _, src := range s.sources {
		collected = append(collected, collectSource(ctx, src)...)
	}

	seen := make(map[string]bool, len(collected))
	docs := make(map[string]domain.Document, len(collected))
	indexed := 0
	for _, doc := range collected {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		docs[doc.ID] = doc

		fields := map[string]string{
			driven.FieldText:    doc.Text,
			driven.FieldProject: doc.Project,
		}
		stored := driven.StoredFields{
			Agent:     doc.Agent,
			SessionID: doc.SessionID,
			Timestamp: doc.Timestamp,
			Project:   doc.Project,
			Type:      doc.Type,
			FilePath:  doc.FilePath,
			Display:   doc.Display,
		}
		if err := s.engine.Index(ctx, doc.ID, fields, stored); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
		indexed++
	}

	s.mu.Lock()
	s.docs = docs
	s.built = true
	s.mu.Unlock()

	logger.Info("Indexed %d documents (%d collected)", indexed, len(collected))
	return nil
}

// collectSource gathers one source's documents, memory files, and plan
// files. Each enumeration failure is absorbed here: a corrupt source
// never prevents search from working on everything else.
func collectSource(ctx context.Context, src driven.AgentSource) []domain.Document {
	name := src.Name()
	if !src.Available() {
		logger.Debug("Agent %s unavailable, skipping", name)
		return nil
	}

	var out []domain.Document

	docs, err := src.Documents(ctx)
	if err != nil {
		logger.Warn("Agent %s: document enumeration failed: %v", name, err)
	} else {
		out = append(out, docs...)
	}

	memories, err := src.MemoryFiles(ctx)
	if err != nil {
		logger.Warn("Agent %s: memory listing failed: %v", name, err)
	} else {
		for _, f := range memories {
			out = append(out, fileDocument(name, f, domain.TypeMemory))
		}
	}

	plans, err := src.PlanFiles(ctx)
	if err != nil {
		logger.Warn("Agent %s: plan listing failed: %v", name, err)
	} else {
		for _, f := range plans {
			out = append(out, fileDocument(name, f, domain.TypePlan))
		}
	}

	logger.Debug("Agent %s contributed %d documents", name, len(out))
	return out
}

// fileDocument maps a memory or plan file onto the document shape.
// These documents carry no message count, so message-count filters never
// exclude them.
func fileDocument(agent string, f domain.MemoryFile, t domain.DocumentType) domain.Document {
	kind := "memory"
	if t == domain.TypePlan {
		kind = "plan"
	}
	return domain.Document{
		ID:       fmt.Sprintf("%s:%s:%s", agent, kind, f.Path),
		Agent:    agent,
		FilePath: f.Path,
		Display:  filepath.Base(f.Path),
		Text:     f.Content,
		Type:     t,
	}
}

func (s *SearchService) lookup(id string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// --- Filter stages ---

func filterByAgent(hits []driven.Hit, agents []string) []driven.Hit {
	if len(agents) == 0 {
		return hits
	}
	set := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a == driving.AllAgents {
			return hits
		}
		set[a] = true
	}
	out := hits[:0]
	for _, h := range hits {
		if set[h.Fields.Agent] {
			out = append(out, h)
		}
	}
	return out
}

// filterByDate bounds the timestamp inclusively on both ends. Documents
// without a timestamp always pass.
func filterByDate(hits []driven.Hit, from, to int64) []driven.Hit {
	if from == 0 && to == 0 {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		ts := h.Fields.Timestamp
		if ts != 0 {
			if from != 0 && ts < from {
				continue
			}
			if to != 0 && ts > to {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

func (s *SearchService) filterByType(hits []driven.Hit, types []domain.DocumentType) []driven.Hit {
	if len(types) == 0 {
		return hits
	}
	set := make(map[domain.DocumentType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	out := hits[:0]
	for _, h := range hits {
		doc, _ := s.lookup(h.ID)
		if set[domain.ResolveDocumentType(h.Fields.Type, doc.Type)] {
			out = append(out, h)
		}
	}
	return out
}

// filterByProject is a case-insensitive substring match. Documents with
// no project always pass.
func filterByProject(hits []driven.Hit, project string) []driven.Hit {
	if project == "" {
		return hits
	}
	needle := strings.ToLower(project)
	out := hits[:0]
	for _, h := range hits {
		if h.Fields.Project == "" ||
			strings.Contains(strings.ToLower(h.Fields.Project), needle) {
			out = append(out, h)
		}
	}
	return out
}

// filterByMessageCount drops conversations below the threshold.
// Documents without a message count (memory files, plan files, history
// fallbacks) always pass.
func (s *SearchService) filterByMessageCount(hits []driven.Hit, minCount int) []driven.Hit {
	if minCount <= 0 {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		doc, ok := s.lookup(h.ID)
		if ok && doc.MessageCount != nil && *doc.MessageCount < minCount {
			continue
		}
		out = append(out, h)
	}
	return out
}
