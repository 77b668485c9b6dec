package domain

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one entry in a session transcript.
type Message struct {
	Role Role

	// Text is the flattened textual content of the message.
	Text string

	// Timestamp is epoch milliseconds, zero when unknown.
	Timestamp int64
}

// Session is one full conversation, fetched on demand from its source.
// Sessions are not cached; every drill-down read loads them fresh.
type Session struct {
	Agent     string
	ID        string
	Timestamp int64
	Project   string

	// Metadata holds free-form vendor fields (model, version, ...).
	Metadata map[string]string

	Messages []Message
}

// SessionSummary is the listing view of a session, cheap to enumerate.
type SessionSummary struct {
	Agent        string
	ID           string
	Timestamp    int64
	Project      string
	Display      string
	MessageCount int
}

// SessionFilter narrows a session listing.
type SessionFilter struct {
	// Project is a case-insensitive substring match.
	Project string

	// Limit caps the listing. Zero means no cap.
	Limit int
}
