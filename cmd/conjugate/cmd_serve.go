package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"conjugate/internal/logging"
	mcpserver "conjugate/internal/mcp"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Serve exposes list_bundles, get_posterior, run_verification and get_report
as MCP tools over stdin/stdout. The server exits when its parent process does.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv := mcpserver.NewServer(version)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, 2*time.Second, cancel)

	logging.New("mcp").Info("starting MCP server over stdio")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
