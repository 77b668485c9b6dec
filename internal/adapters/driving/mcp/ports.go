package mcp

import (
	"github.com/retracehq/retrace/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers corpus queries.
	Search driving.SearchService

	// Session lists and reads sessions.
	Session driving.SessionService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Session == nil {
		return ErrMissingSessionService
	}
	return nil
}
