// ABOUTME: Main entry point for the finrouter MCP server with stdio transport
// ABOUTME: Loads configuration, wires the router and serves all MCP tools
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/finrouter/internal/app"
	"github.com/harper/finrouter/internal/config"
	"github.com/harper/finrouter/internal/mcp"
)

func main() {
	// stdout carries the protocol; logs go to stderr
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "finrouter-mcp", ReportTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	cfg, err := config.LoadFile(os.Getenv("FINROUTER_CONFIG"))
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start router", "err", err)
	}
	defer a.Close()

	server := mcpserver.NewMCPServer(
		"finrouter",
		"0.1.0",
	)
	mcp.RegisterTools(server, a.Orchestrator)

	logger.Info("MCP server starting on stdio", "provider", a.Provider.Name, "backend", cfg.StateBackend)
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "err", err)
		a.Close()
		os.Exit(1)
	}
}
