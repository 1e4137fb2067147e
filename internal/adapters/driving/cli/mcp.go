package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docket/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the ingest_document,
search_documents, get_document_text and list_documents tools.

By default, the server communicates over stdio using JSON-RPC.

Use --http to serve the streamable HTTP transport instead. The HTTP server
also exposes Prometheus metrics on /metrics and a liveness probe on /healthz.

Examples:
  # Stdio mode (default)
  docket mcp

  # HTTP mode
  docket mcp --http 127.0.0.1:8765

Client configuration:
  {
    "mcpServers": {
      "docket": {
        "command": "/path/to/docket",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	mcpCmd.Flags().Lookup("http").NoOptDefVal = "default"
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Ingest:   svc.Ingest,
		Search:   svc.Search,
		Document: svc.Document,
	}

	server, err := mcp.NewServer(ports, svc.Logger)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		addr := mcpHTTPAddr
		if addr == "default" {
			addr = svc.ServerAddr
		}
		cmd.PrintErrf("MCP server listening on http://%s%s\n", addr, mcp.EndpointPath)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
