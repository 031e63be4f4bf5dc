package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can upload
files, list them by category and ask questions about them.

The server acts for a single owner, taken from --owner. By default it
communicates over stdio using JSON-RPC. Use --port to serve streamable
HTTP instead, e.g. for the MCP Inspector.

Examples:
  # Stdio mode (default)
  grabdocs mcp serve --owner alice

  # HTTP mode
  grabdocs mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "grabdocs": {
        "command": "/path/to/grabdocs",
        "args": ["mcp", "serve", "--owner", "alice"]
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
		Ingest: ingestService,
		Query:  queryService,
		Files:  fileService,
	}

	server, err := mcp.NewServer(ports, mcp.WithOwner(ownerID))
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
