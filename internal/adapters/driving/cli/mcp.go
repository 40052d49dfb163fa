package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default the server communicates over stdio using JSON-RPC. Use --http to
serve over HTTP instead; HTTP mode also exposes Prometheus metrics at /metrics.

Tools:
  ask          - answer a question with its strategy, reason and sources
  top_queries  - the most frequently asked questions

Examples:
  # Stdio mode
  concierge mcp

  # HTTP mode
  concierge mcp --http :8080`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Answer:  svc.Answer,
		Stats:   svc.Stats,
		Index:   svc.Index,
		Metrics: svc.Metrics,
	})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
