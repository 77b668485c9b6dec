package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/core/domain"
)

func newTestServer(t *testing.T, search *mockSearchService, session *mockSessionService) *Server {
	t.Helper()
	if search == nil {
		search = &mockSearchService{}
	}
	if session == nil {
		session = &mockSessionService{}
	}
	server, err := NewServer(&Ports{Search: search, Session: session})
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		count := 4
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					Document: domain.Document{
						ID:           "claude:s1",
						Agent:        "claude",
						SessionID:    "s1",
						Project:      "/home/dev/api",
						Display:      "Add JWT auth",
						MessageCount: &count,
					},
					Score:       0.95,
					MatchedText: "...JWT auth...",
					Snippets:    []domain.Snippet{{Text: "...JWT auth...", MatchTerms: []string{"jwt"}}},
					MatchCount:  2,
				},
			},
		}
		server := newTestServer(t, mockSearch, nil)

		input := SearchInput{Query: "jwt", Limit: 10}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		result := output.Results[0]
		assert.Equal(t, "claude:s1", result.DocumentID)
		assert.Equal(t, "claude", result.Agent)
		assert.Equal(t, "conversation", result.Type)
		assert.Equal(t, 0.95, result.Score)
		assert.Equal(t, 2, result.MatchCount)
		require.Len(t, result.Snippets, 1)
		assert.Equal(t, []string{"jwt"}, result.Snippets[0].MatchTerms)
	})

	t.Run("maps input onto search options", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server := newTestServer(t, mockSearch, nil)

		fuzzy := false
		input := SearchInput{
			Query:           "deploy",
			Agents:          []string{"codex"},
			Project:         "shop",
			Types:           []string{"memory", "plan"},
			DateFrom:        "2025-03-01",
			DateTo:          "2025-03-02",
			Fuzzy:           &fuzzy,
			MinMessageCount: 3,
			Limit:           7,
		}
		_, _, err := server.handleSearch(ctx, nil, input)
		require.NoError(t, err)

		opts := mockSearch.gotOpts
		assert.Equal(t, "deploy", opts.Query)
		assert.Equal(t, []string{"codex"}, opts.Agents)
		assert.Equal(t, "shop", opts.Project)
		assert.Equal(t, []domain.DocumentType{domain.TypeMemory, domain.TypePlan}, opts.Types)
		assert.False(t, opts.Fuzzy)
		assert.Equal(t, 3, opts.MinMessageCount)
		assert.Equal(t, 7, opts.Limit)
		// date_to is pushed to the last milli of the day.
		assert.Equal(t, int64(86400000-1), opts.DateTo-opts.DateFrom)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		server := newTestServer(t, nil, nil)

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "x", DateFrom: "last tuesday"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "date_from")
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, mockSearch, nil)

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleListSessions(t *testing.T) {
	ctx := context.Background()

	mockSession := &mockSessionService{
		summaries: []domain.SessionSummary{
			{Agent: "claude", ID: "s1", Timestamp: 200, Display: "Fix login", MessageCount: 12},
			{Agent: "codex", ID: "s2", Timestamp: 100, MessageCount: 4},
		},
	}
	server := newTestServer(t, nil, mockSession)

	_, output, err := server.handleListSessions(ctx, nil, ListSessionsInput{Agent: "all"})
	require.NoError(t, err)

	assert.Equal(t, "all", mockSession.gotAgent)
	assert.Equal(t, 2, output.Count)
	assert.Equal(t, "s1", output.Sessions[0].SessionID)
	assert.Equal(t, 12, output.Sessions[0].MessageCount)
}

func TestServer_handleReadSession(t *testing.T) {
	ctx := context.Background()

	t.Run("maps read result", func(t *testing.T) {
		mockSession := &mockSessionService{
			read: &domain.SessionRead{
				Agent:         "claude",
				ID:            "s1",
				TotalMessages: 40,
				Messages:      []domain.Message{{Role: domain.RoleUser, Text: "hello"}},
				FirstIndex:    10,
				MatchIndex:    0,
				MatchCount:    1,
			},
		}
		server := newTestServer(t, nil, mockSession)

		window := 3
		input := ReadSessionInput{
			Agent:         "claude",
			SessionID:     "s1",
			Query:         "hello",
			ContextWindow: &window,
		}
		_, output, err := server.handleReadSession(ctx, nil, input)
		require.NoError(t, err)

		assert.Equal(t, 3, mockSession.gotOpts.ContextWindow)
		assert.Equal(t, 40, output.TotalMessages)
		assert.Equal(t, 10, output.FirstIndex)
		require.Len(t, output.Messages, 1)
		assert.Equal(t, "user", output.Messages[0].Role)
	})

	t.Run("unset context window stays unset", func(t *testing.T) {
		mockSession := &mockSessionService{read: &domain.SessionRead{}}
		server := newTestServer(t, nil, mockSession)

		_, _, err := server.handleReadSession(ctx, nil, ReadSessionInput{Agent: "claude", SessionID: "s1"})
		require.NoError(t, err)
		assert.Equal(t, -1, mockSession.gotOpts.ContextWindow)
	})

	t.Run("maps windows in all-matches mode", func(t *testing.T) {
		mockSession := &mockSessionService{
			read: &domain.SessionRead{
				MatchIndex: -1,
				MatchCount: 2,
				Windows: []domain.SessionWindow{
					{Start: 1, End: 4, Matched: []int{2, 3}, Messages: []domain.Message{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}},
				},
			},
		}
		server := newTestServer(t, nil, mockSession)

		input := ReadSessionInput{Agent: "claude", SessionID: "s1", Query: "x", AllMatches: true}
		_, output, err := server.handleReadSession(ctx, nil, input)
		require.NoError(t, err)

		assert.True(t, mockSession.gotOpts.AllMatches)
		require.Len(t, output.Windows, 1)
		assert.Equal(t, 1, output.Windows[0].Start)
		assert.Equal(t, []int{2, 3}, output.Windows[0].Matched)
		assert.Len(t, output.Windows[0].Messages, 4)
	})

	t.Run("propagates errors", func(t *testing.T) {
		mockSession := &mockSessionService{err: domain.ErrSessionNotFound}
		server := newTestServer(t, nil, mockSession)

		_, _, err := server.handleReadSession(ctx, nil, ReadSessionInput{Agent: "claude", SessionID: "nope"})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
