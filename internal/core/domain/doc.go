// Package domain contains the core business entities for Retrace.
// These are plain structs with no external dependencies, shared by
// services, ports, and adapters.
package domain
