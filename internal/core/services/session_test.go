package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/core/domain"
)

func messages(texts ...string) []domain.Message {
	out := make([]domain.Message, 0, len(texts))
	for i, text := range texts {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out = append(out, domain.Message{Role: role, Text: text})
	}
	return out
}

func numberedSession(agent, id string, count int) *domain.Session {
	msgs := make([]domain.Message, 0, count)
	for i := 0; i < count; i++ {
		msgs = append(msgs, domain.Message{Role: domain.RoleUser, Text: "message"})
	}
	return &domain.Session{Agent: agent, ID: id, Messages: msgs}
}

func TestAgents(t *testing.T) {
	svc := NewSessionService(
		&mockSource{name: "claude"},
		&mockSource{name: "codex"},
	)
	assert.Equal(t, []string{"claude", "codex"}, svc.Agents())
}

func TestListSessionsMergedNewestFirst(t *testing.T) {
	svc := NewSessionService(
		&mockSource{name: "claude", listing: []domain.SessionSummary{
			{Agent: "claude", ID: "c-old", Timestamp: 100},
			{Agent: "claude", ID: "c-new", Timestamp: 300},
		}},
		&mockSource{name: "codex", listing: []domain.SessionSummary{
			{Agent: "codex", ID: "x-mid", Timestamp: 200},
		}},
	)

	out, err := svc.ListSessions(context.Background(), "all", domain.SessionFilter{})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "c-new", out[0].ID)
	assert.Equal(t, "x-mid", out[1].ID)
	assert.Equal(t, "c-old", out[2].ID)
}

func TestListSessionsLimitAfterMerge(t *testing.T) {
	svc := NewSessionService(
		&mockSource{name: "claude", listing: []domain.SessionSummary{
			{Agent: "claude", ID: "c1", Timestamp: 100},
		}},
		&mockSource{name: "codex", listing: []domain.SessionSummary{
			{Agent: "codex", ID: "x1", Timestamp: 500},
			{Agent: "codex", ID: "x2", Timestamp: 400},
		}},
	)

	out, err := svc.ListSessions(context.Background(), "", domain.SessionFilter{Limit: 2})
	require.NoError(t, err)

	// The limit cuts the merged, globally sorted list, not each source.
	require.Len(t, out, 2)
	assert.Equal(t, "x1", out[0].ID)
	assert.Equal(t, "x2", out[1].ID)
}

func TestListSessionsSingleAgent(t *testing.T) {
	svc := NewSessionService(
		&mockSource{name: "claude", listing: []domain.SessionSummary{
			{Agent: "claude", ID: "c1"},
		}},
		&mockSource{name: "codex", listing: []domain.SessionSummary{
			{Agent: "codex", ID: "x1"},
		}},
	)

	out, err := svc.ListSessions(context.Background(), "codex", domain.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x1", out[0].ID)
}

func TestListSessionsUnknownAgent(t *testing.T) {
	svc := NewSessionService(&mockSource{name: "claude"})

	_, err := svc.ListSessions(context.Background(), "gemini", domain.SessionFilter{})
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestListSessionsSkipsUnavailable(t *testing.T) {
	svc := NewSessionService(
		&mockSource{name: "cursor", unavailable: true, listing: []domain.SessionSummary{
			{Agent: "cursor", ID: "hidden"},
		}},
		&mockSource{name: "claude", listing: []domain.SessionSummary{
			{Agent: "claude", ID: "c1"},
		}},
	)

	out, err := svc.ListSessions(context.Background(), "all", domain.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ID)
}

func TestReadUnknownAgent(t *testing.T) {
	svc := NewSessionService(&mockSource{name: "claude"})

	_, err := svc.Read(context.Background(), "gemini", "s1", domain.ReadOptions{ContextWindow: -1})
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestReadUnknownSession(t *testing.T) {
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{}})

	_, err := svc.Read(context.Background(), "claude", "missing", domain.ReadOptions{ContextWindow: -1})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReadWholeSession(t *testing.T) {
	sess := &domain.Session{
		Agent:    "claude",
		ID:       "s1",
		Project:  "/home/dev/api",
		Messages: messages("hello", "hi there", "bye"),
	}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{ContextWindow: -1})
	require.NoError(t, err)

	assert.Equal(t, 3, read.TotalMessages)
	assert.Len(t, read.Messages, 3)
	assert.Equal(t, 0, read.FirstIndex)
	assert.Equal(t, -1, read.MatchIndex)
	assert.Equal(t, 0, read.MatchCount)
	assert.Equal(t, "/home/dev/api", read.Project)
}

func TestReadPagination(t *testing.T) {
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{
		"s1": numberedSession("claude", "s1", 10),
	}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		ContextWindow: -1,
		Offset:        4,
		Limit:         3,
	})
	require.NoError(t, err)

	assert.Len(t, read.Messages, 3)
	assert.Equal(t, 4, read.FirstIndex)
	assert.Equal(t, 10, read.TotalMessages)
}

func TestReadPaginationOffsetPastEnd(t *testing.T) {
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{
		"s1": numberedSession("claude", "s1", 3),
	}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		ContextWindow: -1,
		Offset:        10,
	})
	require.NoError(t, err)

	assert.Empty(t, read.Messages)
	assert.Equal(t, 3, read.FirstIndex)
}

func TestReadSingleMatchNarrows(t *testing.T) {
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(
		"set up the repo",            // 0
		"sure, initialised it",       // 1
		"now add oauth login",        // 2  <- match
		"done, oauth flow is wired",  // 3
		"ship it",                    // 4
		"released",                   // 5
	)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "oauth login",
		ContextWindow: 1,
	})
	require.NoError(t, err)

	// Window [1,3] around the first match at index 2.
	require.Len(t, read.Messages, 3)
	assert.Equal(t, 1, read.FirstIndex)
	assert.Equal(t, 1, read.MatchIndex)
	assert.Equal(t, 1, read.MatchCount)
	assert.Equal(t, "now add oauth login", read.Messages[1].Text)
}

func TestReadSingleMatchThenPaginate(t *testing.T) {
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(
		"a", "b", "c", "the target word", "e", "f", "g",
	)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "target",
		ContextWindow: 2,
		Offset:        1,
		Limit:         2,
	})
	require.NoError(t, err)

	// Narrow to [1,5] first, then page within it: messages 2 and 3.
	require.Len(t, read.Messages, 2)
	assert.Equal(t, 2, read.FirstIndex)
	assert.Equal(t, 1, read.MatchIndex)
	assert.Equal(t, "the target word", read.Messages[1].Text)
}

func TestReadMatchPaginatedOut(t *testing.T) {
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(
		"the target word", "b", "c", "d",
	)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "target",
		ContextWindow: -1,
		Offset:        2,
	})
	require.NoError(t, err)

	// The match exists but sits outside the returned page.
	assert.Equal(t, 1, read.MatchCount)
	assert.Equal(t, -1, read.MatchIndex)
	assert.Equal(t, 2, read.FirstIndex)
}

func TestReadNoMatchIsNotAnError(t *testing.T) {
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages("hello", "world")}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "quasar",
		ContextWindow: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, read.MatchCount)
	assert.Equal(t, -1, read.MatchIndex)
	assert.Len(t, read.Messages, 2)
}

func TestReadAllMatchesWindows(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = "plain"
	}
	texts[2] = "needle one"
	texts[3] = "needle two"
	texts[7] = "needle three"

	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(texts...)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "needle",
		AllMatches:    true,
		ContextWindow: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, read.MatchCount)
	require.Len(t, read.Windows, 2)

	assert.Equal(t, 1, read.Windows[0].Start)
	assert.Equal(t, 4, read.Windows[0].End)
	assert.Equal(t, []int{2, 3}, read.Windows[0].Matched)
	assert.Len(t, read.Windows[0].Messages, 4)

	assert.Equal(t, 6, read.Windows[1].Start)
	assert.Equal(t, 8, read.Windows[1].End)
	assert.Equal(t, []int{7}, read.Windows[1].Matched)
}

func TestReadAllMatchesMaxMatches(t *testing.T) {
	texts := []string{"needle", "x", "needle", "x", "needle"}
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(texts...)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "needle",
		AllMatches:    true,
		ContextWindow: 0,
		MaxMatches:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, read.MatchCount)
	require.Len(t, read.Windows, 2)
	assert.Equal(t, []int{0}, read.Windows[0].Matched)
	assert.Equal(t, []int{2}, read.Windows[1].Matched)
}

func TestReadAllMatchesDefaultWindow(t *testing.T) {
	texts := make([]string, 9)
	for i := range texts {
		texts[i] = "plain"
	}
	texts[4] = "needle"
	sess := &domain.Session{Agent: "claude", ID: "s1", Messages: messages(texts...)}
	svc := NewSessionService(&mockSource{name: "claude", sessions: map[string]*domain.Session{"s1": sess}})

	read, err := svc.Read(context.Background(), "claude", "s1", domain.ReadOptions{
		Query:         "needle",
		AllMatches:    true,
		ContextWindow: -1,
	})
	require.NoError(t, err)

	require.Len(t, read.Windows, 1)
	assert.Equal(t, 2, read.Windows[0].Start)
	assert.Equal(t, 6, read.Windows[0].End)
}
