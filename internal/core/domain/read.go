package domain

// ReadOptions configures a session drill-down read.
type ReadOptions struct {
	// Query switches the read into matching mode. Empty means "return
	// everything" subject to pagination.
	Query string

	// ContextWindow is the number of messages kept on each side of a
	// match. Negative means unset: single-match reads keep the full
	// message list, all-matches reads fall back to a small default.
	ContextWindow int

	// AllMatches returns every match as merged context windows instead
	// of narrowing around the first match.
	AllMatches bool

	// MaxMatches caps the match locations considered in all-matches
	// mode, keeping the first ones in document order. Zero is unlimited.
	MaxMatches int

	// Offset and Limit paginate the message list in single-match mode,
	// applied strictly after any context-window narrowing.
	Offset int
	Limit  int
}

// SessionWindow is one merged context window in an all-matches read.
// Start and End are absolute message indices, inclusive.
type SessionWindow struct {
	Start int
	End   int

	// Matched lists the absolute indices that were original match points.
	Matched []int

	// Messages is the full payload for [Start, End].
	Messages []Message
}

// SessionRead is the result of a drill-down read. A query that matches
// nothing is reported through MatchIndex -1 / zero windows, never as an
// error.
type SessionRead struct {
	Agent     string
	ID        string
	Timestamp int64
	Project   string
	Metadata  map[string]string

	// TotalMessages is the session's full message count before any
	// narrowing or pagination.
	TotalMessages int

	// Messages is the single-match mode payload: context-narrowed, then
	// paginated. Empty in all-matches mode.
	Messages []Message

	// FirstIndex is the absolute index of Messages[0].
	FirstIndex int

	// MatchIndex is the position of the first match within Messages,
	// remapped after narrowing and pagination; -1 when outside the
	// returned range or when nothing matched.
	MatchIndex int

	// MatchCount is the number of matching messages found.
	MatchCount int

	// Windows is the all-matches mode payload.
	Windows []SessionWindow
}
