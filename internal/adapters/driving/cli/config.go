package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/adapters/driven/config/file"
)

var (
	configAgentEnable  bool
	configAgentDisable bool
	configAgentPath    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and change the retrace configuration (~/.retrace/config.toml).`,
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configAgentCmd = &cobra.Command{
	Use:   "agent [name]",
	Short: "Configure one agent source",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigAgent,
}

func init() {
	configAgentCmd.Flags().BoolVar(&configAgentEnable, "enable", false, "enable the agent")
	configAgentCmd.Flags().BoolVar(&configAgentDisable, "disable", false, "disable the agent")
	configAgentCmd.Flags().StringVar(&configAgentPath, "path", "", "override the agent's data directory")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAgentCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Printf("Config file: %s\n\n", configStore.Path())

	cfg := configStore.Config()
	cmd.Println("[search]")
	cmd.Printf("  limit: %s\n", orDefault(cfg.Search.Limit))
	cmd.Printf("  max_snippets: %s\n", orDefault(cfg.Search.MaxSnippets))
	fuzzy := "default (true)"
	if cfg.Search.Fuzzy != nil {
		fuzzy = fmt.Sprintf("%t", *cfg.Search.Fuzzy)
	}
	cmd.Printf("  fuzzy: %s\n\n", fuzzy)

	cmd.Println("[agents]")
	for _, name := range sessionService.Agents() {
		status := "enabled"
		if !configStore.AgentEnabled(name) {
			status = "disabled"
		}
		line := fmt.Sprintf("  %s: %s", name, status)
		if path := configStore.AgentPath(name); path != "" {
			line += " (path: " + path + ")"
		}
		cmd.Println(line)
	}

	if cfg.MCP.HTTPAddr != "" {
		cmd.Printf("\n[mcp]\n  http_addr: %s\n", cfg.MCP.HTTPAddr)
	}
	return nil
}

func runConfigAgent(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	if configAgentEnable && configAgentDisable {
		return errors.New("--enable and --disable are mutually exclusive")
	}

	name := args[0]
	err := configStore.Update(func(c *file.Config) {
		if c.Agents == nil {
			c.Agents = make(map[string]file.AgentConfig)
		}
		agent := c.Agents[name]
		if configAgentEnable {
			enabled := true
			agent.Enabled = &enabled
		}
		if configAgentDisable {
			enabled := false
			agent.Enabled = &enabled
		}
		if configAgentPath != "" {
			agent.Path = configAgentPath
		}
		c.Agents[name] = agent
	})
	if err != nil {
		return fmt.Errorf("updating config: %w", err)
	}

	cmd.Printf("Updated agent %s.\n", name)
	return nil
}

func orDefault(v int) string {
	if v == 0 {
		return "default"
	}
	return fmt.Sprintf("%d", v)
}
