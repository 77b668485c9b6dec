package driving

import (
	"context"

	"github.com/retracehq/retrace/internal/core/domain"
)

// AllAgents selects every registered agent in a listing.
const AllAgents = "all"

// SessionService lists and reads sessions directly from agent sources,
// bypassing the corpus index.
type SessionService interface {
	// Agents returns the registered agent names in registration order.
	Agents() []string

	// ListSessions enumerates sessions for one agent, or for every
	// agent when name is empty or AllAgents. Unknown names return
	// domain.ErrUnknownAgent.
	ListSessions(ctx context.Context, agent string, filter domain.SessionFilter) ([]domain.SessionSummary, error)

	// Read loads one session and applies query matching per opts.
	// Unknown agents or session ids surface as errors, not empties.
	Read(ctx context.Context, agent, sessionID string, opts domain.ReadOptions) (*domain.SessionRead, error)
}
