package driven

import (
	"context"

	"github.com/retracehq/retrace/internal/core/domain"
)

// AgentSource yields the searchable data of one coding-agent tool's local
// directory. Each agent (claude, codex, cursor, ...) implements this.
type AgentSource interface {
	// Name returns the agent identifier used in document IDs and filters.
	Name() string

	// Available is a cheap existence check. Unavailable sources simply
	// contribute zero documents; they never fail a build.
	Available() bool

	// Documents enumerates the source's searchable documents, typically
	// conversation digests. Finite and restartable per call.
	Documents(ctx context.Context) ([]domain.Document, error)

	// MemoryFiles lists the source's agent memory files.
	MemoryFiles(ctx context.Context) ([]domain.MemoryFile, error)

	// PlanFiles lists the source's plan files.
	PlanFiles(ctx context.Context) ([]domain.MemoryFile, error)

	// ListSessions enumerates session summaries, newest first.
	ListSessions(ctx context.Context, filter domain.SessionFilter) ([]domain.SessionSummary, error)

	// GetSession loads a full session with ordered messages.
	// Returns domain.ErrSessionNotFound when the id is unknown.
	GetSession(ctx context.Context, id string) (*domain.Session, error)
}
