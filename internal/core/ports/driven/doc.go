// Package driven defines the interfaces the core consumes: agent log
// sources and the full-text engine. Adapters implement these.
package driven
