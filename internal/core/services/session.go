package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/core/ports/driving"
	"github.com/retracehq/retrace/internal/logger"
	"github.com/retracehq/retrace/internal/matcher"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// defaultAllMatchesContext is the context window used in all-matches
// mode when the caller leaves it unset.
const defaultAllMatchesContext = 2

// SessionService lists and reads sessions straight from the agent
// sources. Sessions are fetched fresh on every call; there is no cache.
type SessionService struct {
	names   []string
	sources map[string]driven.AgentSource
}

// NewSessionService creates a session service over the given sources.
func NewSessionService(sources ...driven.AgentSource) *SessionService {
	s := &SessionService{sources: make(map[string]driven.AgentSource, len(sources))}
	for _, src := range sources {
		s.names = append(s.names, src.Name())
		s.sources[src.Name()] = src
	}
	return s
}

// Agents returns the registered agent names in registration order.
func (s *SessionService) Agents() []string {
	return append([]string(nil), s.names...)
}

// ListSessions enumerates sessions for one agent or all of them, merged
// newest first. An unavailable agent contributes nothing; an unknown
// agent name is a caller mistake and errors out.
func (s *SessionService) ListSessions(ctx context.Context, agent string, filter domain.SessionFilter) ([]domain.SessionSummary, error) {
	var selected []driven.AgentSource
	if agent == "" || agent == driving.AllAgents {
		for _, name := range s.names {
			selected = append(selected, s.sources[name])
		}
	} else {
		src, ok := s.sources[agent]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agent)
		}
		selected = append(selected, src)
	}

	var merged []domain.SessionSummary
	for _, src := range selected {
		if !src.Available() {
			continue
		}
		summaries, err := src.ListSessions(ctx, filter)
		if err != nil {
			logger.Warn("Agent %s: session listing failed: %v", src.Name(), err)
			continue
		}
		merged = append(merged, summaries...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

// Read loads one session and applies query matching. With a query it
// runs in matching mode: either narrowing around the first match or
// returning every match as merged context windows. A query matching
// nothing is a normal zero-match result; bad agent or session ids are
// errors.
func (s *SessionService) Read(ctx context.Context, agent, sessionID string, opts domain.ReadOptions) (*domain.SessionRead, error) {
	src, ok := s.sources[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agent)
	}

	sess, err := src.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s/%s: %w", agent, sessionID, err)
	}

	read := &domain.SessionRead{
		Agent:         sess.Agent,
		ID:            sess.ID,
		Timestamp:     sess.Timestamp,
		Project:       sess.Project,
		Metadata:      sess.Metadata,
		TotalMessages: len(sess.Messages),
		MatchIndex:    -1,
	}

	queryWords := matcher.QueryWords(strings.TrimSpace(opts.Query))

	if opts.AllMatches && len(queryWords) > 0 {
		s.readAllMatches(read, sess.Messages, queryWords, opts)
		return read, nil
	}

	s.readSingle(read, sess.Messages, queryWords, opts)
	return read, nil
}

// readAllMatches finds every matching message, builds context windows
// around the matches, and merges windows that touch or overlap.
func (s *SessionService) readAllMatches(read *domain.SessionRead, msgs []domain.Message, queryWords []string, opts domain.ReadOptions) {
	matches := matcher.FindAll(msgs, queryWords, opts.MaxMatches)
	read.MatchCount = len(matches)

	window := opts.ContextWindow
	if window < 0 {
		window = defaultAllMatchesContext
	}

	for _, w := range matcher.ContextWindows(matches, window, len(msgs)) {
		read.Windows = append(read.Windows, domain.SessionWindow{
			Start:    w.Start,
			End:      w.End,
			Matched:  w.Matched,
			Messages: append([]domain.Message(nil), msgs[w.Start:w.End+1]...),
		})
	}
}

// readSingle narrows to a context window around the first match, then
// paginates. Pagination runs strictly after the narrowing, so offset and
// limit page within the window; they cannot reach messages the window
// already excluded.
func (s *SessionService) readSingle(read *domain.SessionRead, msgs []domain.Message, queryWords []string, opts domain.ReadOptions) {
	matchIdx := -1
	if len(queryWords) > 0 {
		matchIdx = matcher.FindFirst(msgs, queryWords)
		if matchIdx >= 0 {
			read.MatchCount = 1
		}
	}

	first := 0
	if matchIdx >= 0 && opts.ContextWindow >= 0 {
		start := matchIdx - opts.ContextWindow
		if start < 0 {
			start = 0
		}
		end := matchIdx + opts.ContextWindow
		if end > len(msgs)-1 {
			end = len(msgs) - 1
		}
		msgs = msgs[start : end+1]
		first = start
		matchIdx -= start
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(msgs) {
			first += len(msgs)
			msgs = nil
		} else {
			msgs = msgs[opts.Offset:]
			first += opts.Offset
		}
		matchIdx -= opts.Offset
	}
	if opts.Limit > 0 && len(msgs) > opts.Limit {
		msgs = msgs[:opts.Limit]
	}
	if matchIdx < 0 || matchIdx >= len(msgs) {
		matchIdx = -1
	}

	read.Messages = append([]domain.Message(nil), msgs...)
	read.FirstIndex = first
	read.MatchIndex = matchIdx
}
