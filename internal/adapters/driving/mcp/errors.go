// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Retrace. It lets AI assistants search and read local coding-agent history.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("mcp: session service is required")
