// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents like Claude ask finrouter questions via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs finrouter as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to ask financial questions, inspect routing
decisions and browse threads via stdio.

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  finrouter mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "finrouter": {
  #       "command": "finrouter",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(
		"finrouter",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, a.Orchestrator)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio",
		"provider", a.Provider.Name,
		"backend", a.Config.StateBackend)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, closing state backend")
		if err := a.Close(); err != nil {
			logger.Warn("error closing state backend", "err", err)
		}
		logger.Info("shutdown complete")

	case err := <-serverErr:
		if cerr := a.Close(); cerr != nil {
			logger.Warn("error closing state backend", "err", cerr)
		}
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
