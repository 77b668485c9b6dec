package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownAgent indicates a source name no agent is registered under.
	// Caller mistakes like this propagate; they are never silently empty.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrSessionNotFound indicates a session id the source cannot resolve.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchUnavailable indicates the search engine is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")
)
