package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
your local coding-agent history.

By default, the server communicates over stdio using JSON-RPC. Use
--port (or mcp.http_addr in the config file) to serve HTTP instead.

Examples:
  # Stdio mode (default)
  retrace mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  retrace mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "retrace": {
        "command": "/path/to/retrace",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search:  searchService,
		Session: sessionService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	addr := ""
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
	} else if configStore != nil {
		addr = configStore.Config().MCP.HTTPAddr
	}

	if addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
