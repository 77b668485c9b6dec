package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/retracehq/retrace/internal/core/domain"
)

// dateLayout is the date-only form accepted by the search tool.
const dateLayout = "2006-01-02"

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query           string   `json:"query" jsonschema:"the search query"`
	Agents          []string `json:"agents,omitempty" jsonschema:"restrict to these agent names, or 'all'"`
	Project         string   `json:"project,omitempty" jsonschema:"case-insensitive project path substring"`
	Types           []string `json:"types,omitempty" jsonschema:"document types: conversation, memory, plan, knowledge"`
	DateFrom        string   `json:"date_from,omitempty" jsonschema:"earliest date, YYYY-MM-DD or RFC3339"`
	DateTo          string   `json:"date_to,omitempty" jsonschema:"latest date, YYYY-MM-DD or RFC3339"`
	Fuzzy           *bool    `json:"fuzzy,omitempty" jsonschema:"allow typo-tolerant matching (default true)"`
	MinMessageCount int      `json:"min_message_count,omitempty" jsonschema:"drop conversations with fewer messages"`
	Limit           int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 20)"`
	MaxSnippets     int      `json:"max_snippets,omitempty" jsonschema:"maximum snippets per result (default 3)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SnippetOutput is one extracted snippet.
type SnippetOutput struct {
	Text       string   `json:"text"`
	MatchTerms []string `json:"match_terms,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID   string          `json:"document_id"`
	Agent        string          `json:"agent"`
	SessionID    string          `json:"session_id,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	Project      string          `json:"project,omitempty"`
	Type         string          `json:"type"`
	Display      string          `json:"display,omitempty"`
	Score        float64         `json:"score"`
	MatchedText  string          `json:"matched_text,omitempty"`
	Snippets     []SnippetOutput `json:"snippets,omitempty"`
	MatchCount   int             `json:"match_count"`
	MessageCount *int            `json:"message_count,omitempty"`
}

// ListSessionsInput is the input schema for the list_sessions tool.
type ListSessionsInput struct {
	Agent   string `json:"agent,omitempty" jsonschema:"agent name, or 'all' (default)"`
	Project string `json:"project,omitempty" jsonschema:"case-insensitive project path substring"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of sessions"`
}

// ListSessionsOutput is the output schema for the list_sessions tool.
type ListSessionsOutput struct {
	Sessions []SessionSummaryOutput `json:"sessions"`
	Count    int                    `json:"count"`
}

// SessionSummaryOutput is one listed session.
type SessionSummaryOutput struct {
	Agent        string `json:"agent"`
	SessionID    string `json:"session_id"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	Project      string `json:"project,omitempty"`
	Display      string `json:"display,omitempty"`
	MessageCount int    `json:"message_count"`
}

// ReadSessionInput is the input schema for the read_session tool.
type ReadSessionInput struct {
	Agent         string `json:"agent" jsonschema:"agent name"`
	SessionID     string `json:"session_id" jsonschema:"session id"`
	Query         string `json:"query,omitempty" jsonschema:"locate messages matching this query"`
	ContextWindow *int   `json:"context_window,omitempty" jsonschema:"messages of context around each match"`
	AllMatches    bool   `json:"all_matches,omitempty" jsonschema:"return every match as context windows"`
	MaxMatches    int    `json:"max_matches,omitempty" jsonschema:"cap on matches in all_matches mode"`
	Offset        int    `json:"offset,omitempty" jsonschema:"skip this many messages"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum messages to return"`
}

// ReadSessionOutput is the output schema for the read_session tool.
type ReadSessionOutput struct {
	Agent         string            `json:"agent"`
	SessionID     string            `json:"session_id"`
	Timestamp     int64             `json:"timestamp,omitempty"`
	Project       string            `json:"project,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	TotalMessages int               `json:"total_messages"`
	Messages      []MessageOutput   `json:"messages,omitempty"`
	FirstIndex    int               `json:"first_index"`
	MatchIndex    int               `json:"match_index"`
	MatchCount    int               `json:"match_count"`
	Windows       []WindowOutput    `json:"windows,omitempty"`
}

// MessageOutput is one transcript message.
type MessageOutput struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// WindowOutput is one merged context window in all-matches mode.
type WindowOutput struct {
	Start    int             `json:"start"`
	End      int             `json:"end"`
	Matched  []int           `json:"matched"`
	Messages []MessageOutput `json:"messages"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search across all local coding-agent conversations, memory files, and plans",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List recent coding-agent sessions, newest first",
	}, s.handleListSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_session",
		Description: "Read a session's messages, optionally locating matches for a query",
	}, s.handleReadSession)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.DefaultSearchOptions()
	opts.Query = input.Query
	opts.Agents = input.Agents
	opts.Project = input.Project
	opts.MinMessageCount = input.MinMessageCount
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.MaxSnippets > 0 {
		opts.MaxSnippets = input.MaxSnippets
	}
	if input.Fuzzy != nil {
		opts.Fuzzy = *input.Fuzzy
	}
	for _, t := range input.Types {
		opts.Types = append(opts.Types, domain.DocumentType(t))
	}

	var err error
	if opts.DateFrom, err = parseDate(input.DateFrom, false); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("date_from: %w", err)
	}
	if opts.DateTo, err = parseDate(input.DateTo, true); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("date_to: %w", err)
	}

	results, err := s.ports.Search.Search(ctx, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		r := &results[i]
		out := SearchResultOutput{
			DocumentID:   r.ID,
			Agent:        r.Agent,
			SessionID:    r.SessionID,
			Timestamp:    r.Timestamp,
			Project:      r.Project,
			Type:         string(domain.ResolveDocumentType(r.Type, "")),
			Display:      r.Display,
			Score:        r.Score,
			MatchedText:  r.MatchedText,
			MatchCount:   r.MatchCount,
			MessageCount: r.MessageCount,
		}
		for _, sn := range r.Snippets {
			out.Snippets = append(out.Snippets, SnippetOutput{Text: sn.Text, MatchTerms: sn.MatchTerms})
		}
		output.Results[i] = out
	}
	return nil, output, nil
}

// handleListSessions handles the list_sessions tool invocation.
func (s *Server) handleListSessions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	filter := domain.SessionFilter{Project: input.Project, Limit: input.Limit}
	sessions, err := s.ports.Session.ListSessions(ctx, input.Agent, filter)
	if err != nil {
		return nil, ListSessionsOutput{}, err
	}

	output := ListSessionsOutput{
		Sessions: make([]SessionSummaryOutput, len(sessions)),
		Count:    len(sessions),
	}
	for i, sess := range sessions {
		output.Sessions[i] = SessionSummaryOutput{
			Agent:        sess.Agent,
			SessionID:    sess.ID,
			Timestamp:    sess.Timestamp,
			Project:      sess.Project,
			Display:      sess.Display,
			MessageCount: sess.MessageCount,
		}
	}
	return nil, output, nil
}

// handleReadSession handles the read_session tool invocation.
func (s *Server) handleReadSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReadSessionInput,
) (*mcp.CallToolResult, ReadSessionOutput, error) {
	opts := domain.ReadOptions{
		Query:         input.Query,
		ContextWindow: -1,
		AllMatches:    input.AllMatches,
		MaxMatches:    input.MaxMatches,
		Offset:        input.Offset,
		Limit:         input.Limit,
	}
	if input.ContextWindow != nil {
		opts.ContextWindow = *input.ContextWindow
	}

	read, err := s.ports.Session.Read(ctx, input.Agent, input.SessionID, opts)
	if err != nil {
		return nil, ReadSessionOutput{}, err
	}

	output := ReadSessionOutput{
		Agent:         read.Agent,
		SessionID:     read.ID,
		Timestamp:     read.Timestamp,
		Project:       read.Project,
		Metadata:      read.Metadata,
		TotalMessages: read.TotalMessages,
		Messages:      messageOutputs(read.Messages),
		FirstIndex:    read.FirstIndex,
		MatchIndex:    read.MatchIndex,
		MatchCount:    read.MatchCount,
	}
	for _, w := range read.Windows {
		output.Windows = append(output.Windows, WindowOutput{
			Start:    w.Start,
			End:      w.End,
			Matched:  w.Matched,
			Messages: messageOutputs(w.Messages),
		})
	}
	return nil, output, nil
}

func messageOutputs(msgs []domain.Message) []MessageOutput {
	out := make([]MessageOutput, len(msgs))
	for i, m := range msgs {
		out[i] = MessageOutput{Role: string(m.Role), Text: m.Text, Timestamp: m.Timestamp}
	}
	return out
}

// parseDate converts a date string to epoch millis. Date-only values
// bound the end of the range at the last milli of that day.
func parseDate(s string, endOfDay bool) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t.UnixMilli(), nil
}
