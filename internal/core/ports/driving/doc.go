// Package driving defines the interfaces the core exposes to external
// actors such as the CLI and the MCP server.
package driving
