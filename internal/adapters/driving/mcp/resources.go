package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/retracehq/retrace/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Retrace resources.
	uriScheme = "retrace://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing agents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "agents",
		Name:        "agents",
		Description: "List of all registered coding agents",
		MIMEType:    "application/json",
	}, s.handleAgentsResource)

	// Template for an agent's sessions.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "agents/{agent}/sessions",
		Name:        "agent-sessions",
		Description: "Sessions recorded by a specific agent, newest first",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)
}

// handleAgentsResource returns the registered agent names.
func (s *Server) handleAgentsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Session.Agents(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling agents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSessionsResource returns session summaries for one agent.
func (s *Server) handleSessionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	agent := extractAgent(req.Params.URI)
	if agent == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	sessions, err := s.ports.Session.ListSessions(ctx, agent, domain.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	infos := make([]SessionSummaryOutput, len(sessions))
	for i, sess := range sessions {
		infos[i] = SessionSummaryOutput{
			Agent:        sess.Agent,
			SessionID:    sess.ID,
			Timestamp:    sess.Timestamp,
			Project:      sess.Project,
			Display:      sess.Display,
			MessageCount: sess.MessageCount,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sessions: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractAgent extracts the agent name from a URI like
// retrace://agents/{agent}/sessions.
func extractAgent(uri string) string {
	const prefix = uriScheme + "agents/"
	const suffix = "/sessions"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
