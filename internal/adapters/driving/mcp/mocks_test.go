package mcp

import (
	"context"

	"github.com/retracehq/retrace/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	gotOpts domain.SearchOptions
	err     error
}

func (m *mockSearchService) Search(
	_ context.Context,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.gotOpts = opts
	return m.results, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	agents    []string
	summaries []domain.SessionSummary
	read      *domain.SessionRead
	gotAgent  string
	gotOpts   domain.ReadOptions
	err       error
}

func (m *mockSessionService) Agents() []string {
	return m.agents
}

func (m *mockSessionService) ListSessions(
	_ context.Context,
	agent string,
	_ domain.SessionFilter,
) ([]domain.SessionSummary, error) {
	m.gotAgent = agent
	return m.summaries, m.err
}

func (m *mockSessionService) Read(
	_ context.Context,
	agent, _ string,
	opts domain.ReadOptions,
) (*domain.SessionRead, error) {
	m.gotAgent = agent
	m.gotOpts = opts
	return m.read, m.err
}
