// Package file provides the TOML-backed configuration store, read from
// ~/.retrace/config.toml: per-agent enablement and path overrides plus
// search defaults.
package file
