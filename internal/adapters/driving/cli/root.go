// Package cli provides the cobra command tree for the retrace binary.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/adapters/driven/agents/claude"
	"github.com/retracehq/retrace/internal/adapters/driven/agents/codex"
	"github.com/retracehq/retrace/internal/adapters/driven/agents/cursor"
	"github.com/retracehq/retrace/internal/adapters/driven/config/file"
	index "github.com/retracehq/retrace/internal/adapters/driven/index/memory"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/core/ports/driving"
	"github.com/retracehq/retrace/internal/core/services"
	"github.com/retracehq/retrace/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Wired services. Tests inject their own before Execute.
var (
	configStore    *file.ConfigStore
	searchService  driving.SearchService
	sessionService driving.SessionService
)

var (
	flagVerbose   bool
	flagConfigDir string
)

var rootCmd = &cobra.Command{
	Use:   "retrace",
	Short: "Search your local coding-agent history",
	Long: `Retrace indexes the conversations, memory files, and plans your local
coding agents (Claude Code, Codex, Cursor) leave on disk, and answers
full-text queries over all of them from one place.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "", "config directory (default ~/.retrace)")
}

// initServices wires the agent sources, index engine, and core services.
// Already-wired services (tests) are left alone.
func initServices() error {
	if searchService != nil && sessionService != nil {
		return nil
	}

	store, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore = store

	var sources []driven.AgentSource
	if store.AgentEnabled("claude") {
		sources = append(sources, claude.NewSource(store.AgentPath("claude")))
	}
	if store.AgentEnabled("codex") {
		sources = append(sources, codex.NewSource(store.AgentPath("codex")))
	}
	if store.AgentEnabled("cursor") {
		sources = append(sources, cursor.NewSource(store.AgentPath("cursor")))
	}

	searchService = services.NewSearchService(index.NewEngine(), sources...)
	sessionService = services.NewSessionService(sources...)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
