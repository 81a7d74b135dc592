// ABOUTME: MCP tool definitions and registration for the finrouter server
// ABOUTME: Exposes ask, route, get_thread, list_threads and routing_stats
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/finrouter/internal/core"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, orch *core.Orchestrator) *Handlers {
	handlers := NewHandlers(orch)

	// 1. ask - route a question through the handlers and return the answer
	server.AddTool(mcp.Tool{
		Name:        "ask",
		Description: "Ask the financial assistant a question. The router picks one or more specialist handlers (education, goal planning, portfolio, market, news) and returns a single answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The user's question",
				},
				"thread_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation thread to continue; omit to start a new one",
				},
			},
			Required: []string{"message"},
		},
	}, handlers.Ask)

	// 2. route - explain the routing decision without running handlers
	server.AddTool(mcp.Tool{
		Name:        "route",
		Description: "Show how a message would be routed: pattern matches, keyword scores and the classifier decision. No handler runs.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Message to classify",
				},
				"thread_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional thread whose history is used for topic continuity",
				},
			},
			Required: []string{"message"},
		},
	}, handlers.Route)

	// 3. get_thread - full message log of a thread
	server.AddTool(mcp.Tool{
		Name:        "get_thread",
		Description: "Get the message log, last handler and user context of a conversation thread.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"thread_id": map[string]interface{}{
					"type":        "string",
					"description": "Thread identifier",
				},
			},
			Required: []string{"thread_id"},
		},
	}, handlers.GetThread)

	// 4. list_threads - recent threads
	server.AddTool(mcp.Tool{
		Name:        "list_threads",
		Description: "List stored conversation threads, most recently updated first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of threads to return (default: 20)",
				},
			},
		},
	}, handlers.ListThreads)

	// 5. routing_stats - fast-path and planner usage
	server.AddTool(mcp.Tool{
		Name:        "routing_stats",
		Description: "Routing statistics: fast-path rate, planner calls, degraded plans, handler failures and usage per handler.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.RoutingStats)

	return handlers
}
