// ABOUTME: MCP tool handler implementations for the finrouter server
// ABOUTME: Failures are returned as tool errors, never as Go errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

const defaultThreadLimit = 20

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	orch *core.Orchestrator
}

// NewHandlers creates tool handlers backed by an orchestrator
func NewHandlers(orch *core.Orchestrator) *Handlers {
	return &Handlers{orch: orch}
}

// AskResponse is the ask tool result
type AskResponse struct {
	ThreadID string             `json:"thread_id"`
	Response string             `json:"response"`
	Route    models.RouteKind   `json:"route"`
	Handlers []models.HandlerID `json:"handlers"`
	Degraded bool               `json:"degraded,omitempty"`
	Phase    models.Phase       `json:"phase"`
	Error    string             `json:"error,omitempty"`
}

// Ask handles the ask tool
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	threadID := request.GetString("thread_id", "")

	run, err := h.orch.Submit(ctx, threadID, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request failed: %v", err)), nil
	}

	response := AskResponse{
		ThreadID: run.ThreadID,
		Response: run.FinalResponse(),
		Route:    run.Route,
		Handlers: run.Handlers,
		Degraded: run.Degraded,
		Phase:    run.Phase,
	}
	if run.Failure != nil {
		response.Error = run.Failure.Error()
	}
	return jsonResult(response)
}

// Route handles the route tool
func (h *Handlers) Route(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}

	var history []models.Message
	if threadID := request.GetString("thread_id", ""); threadID != "" {
		state, err := h.orch.Thread(ctx, threadID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load thread: %v", err)), nil
		}
		if state != nil {
			history = state.Messages
		}
	}

	msg, err := models.NewUserMessage(message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	history = append(history, *msg)

	return jsonResult(h.orch.Classifier().Analyze(history))
}

// ThreadResponse is the get_thread tool result
type ThreadResponse struct {
	ThreadID    string             `json:"thread_id"`
	Messages    []models.Message   `json:"messages"`
	LastHandler models.HandlerID   `json:"last_handler,omitempty"`
	UserContext models.UserContext `json:"user_context"`
	Summary     string             `json:"summary"`
}

// GetThread handles the get_thread tool
func (h *Handlers) GetThread(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError("thread_id argument is required and must be a string"), nil
	}

	state, err := h.orch.Thread(ctx, threadID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load thread: %v", err)), nil
	}
	if state == nil {
		return mcp.NewToolResultError(fmt.Sprintf("thread not found: %s", threadID)), nil
	}

	return jsonResult(ThreadResponse{
		ThreadID:    state.ThreadID,
		Messages:    state.Messages,
		LastHandler: state.LastHandler,
		UserContext: state.UserContext,
		Summary:     models.ContextSummary(state.Messages),
	})
}

// ListThreads handles the list_threads tool
func (h *Handlers) ListThreads(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultThreadLimit)
	if limit <= 0 {
		limit = defaultThreadLimit
	}

	threads, err := h.orch.ListThreads(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list threads: %v", err)), nil
	}
	if threads == nil {
		threads = []models.ThreadSummary{}
	}

	return jsonResult(map[string]interface{}{
		"count":   len(threads),
		"threads": threads,
	})
}

// StatsResponse is the routing_stats tool result
type StatsResponse struct {
	models.RoutingStats
	FastPathRate     float64 `json:"fast_path_rate"`
	AverageLatencyMS int64   `json:"average_latency_ms"`
}

// RoutingStats handles the routing_stats tool
func (h *Handlers) RoutingStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.orch.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load stats: %v", err)), nil
	}
	return jsonResult(StatsResponse{
		RoutingStats:     stats,
		FastPathRate:     stats.FastPathRate(),
		AverageLatencyMS: stats.AverageLatency().Milliseconds(),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
