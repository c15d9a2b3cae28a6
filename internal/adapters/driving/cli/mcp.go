package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/overlayc/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so agents can search published
overlay content and check the compile status.

By default the server speaks JSON-RPC over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (for desktop agents)
  overlayc mcp

  # HTTP mode (for MCP Inspector, remote access)
  overlayc mcp --http :8080`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:   b.Search,
		Compiler: b.Compiler,
		Entries:  entryService,
	})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		// Stdout is free in HTTP mode; stdio mode must keep it clean.
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on %s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
