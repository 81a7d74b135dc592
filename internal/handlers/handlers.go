// ABOUTME: LLM-backed and offline implementations of the five financial handlers
// ABOUTME: NewRegistry builds the closed handler registry the orchestrator runs against
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/llm"
	"github.com/harper/finrouter/internal/models"
)

// maxPriorChars bounds how many characters of an earlier handler's answer are quoted to the next one
const maxPriorChars = 1500

// LLMHandler answers with a language model under the handler's system prompt
type LLMHandler struct {
	def       Definition
	completer llm.Completer
}

// NewLLMHandler creates a handler for def backed by completer
func NewLLMHandler(def Definition, completer llm.Completer) *LLMHandler {
	return &LLMHandler{def: def, completer: completer}
}

// Description implements core.Describer
func (h *LLMHandler) Description() string {
	return h.def.Description
}

// Invoke implements core.Handler
func (h *LLMHandler) Invoke(ctx context.Context, req core.HandlerRequest) (string, error) {
	out, err := h.completer.Complete(ctx, h.def.SystemPrompt, RenderRequest(req))
	if err != nil {
		return "", fmt.Errorf("%s handler: %w", h.def.ID, err)
	}
	return strings.TrimSpace(out), nil
}

// RenderRequest turns a handler request into the user prompt sent to the model
func RenderRequest(req core.HandlerRequest) string {
	var b strings.Builder

	// The current message is the last history entry; it is rendered separately below
	history := req.History
	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser && history[n-1].Content == req.Message {
		history = history[:n-1]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	if lines := userContextLines(req.UserContext); len(lines) > 0 {
		b.WriteString("What we know about the user:\n")
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if len(req.Prior) > 0 {
		b.WriteString("Earlier analysis for this question:\n")
		for _, r := range req.Prior {
			fmt.Fprintf(&b, "--- %s ---\n%s\n", r.Handler.Label(), models.Clip(r.Output, maxPriorChars))
		}
		b.WriteString("\nBuild on the earlier analysis rather than repeating it.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s", req.Message)
	return b.String()
}

func userContextLines(uc models.UserContext) []string {
	var lines []string
	if uc.HasPortfolio {
		lines = append(lines, "has an existing portfolio")
	}
	if uc.HasGoals {
		lines = append(lines, "has active financial goals")
	}
	switch uc.InvestmentStage {
	case models.StagePotential:
		lines = append(lines, "is researching investments and has not invested yet")
	case models.StageCurrent:
		lines = append(lines, "is a current investor")
	}
	return lines
}

// OfflineHandler answers without a model, describing how the question was routed
type OfflineHandler struct {
	def Definition
}

// NewOfflineHandler creates a canned-response handler for def
func NewOfflineHandler(def Definition) *OfflineHandler {
	return &OfflineHandler{def: def}
}

// Description implements core.Describer
func (h *OfflineHandler) Description() string {
	return h.def.Description
}

// Invoke implements core.Handler
func (h *OfflineHandler) Invoke(ctx context.Context, req core.HandlerRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s, offline] %s\n", h.def.ID.Label(), h.def.Description)
	fmt.Fprintf(&b, "Question received: %q", req.Message)
	if len(req.Prior) > 0 {
		labels := make([]string, 0, len(req.Prior))
		for _, r := range req.Prior {
			labels = append(labels, r.Handler.Label())
		}
		fmt.Fprintf(&b, "\nBuilding on: %s", strings.Join(labels, ", "))
	}
	if lines := userContextLines(req.UserContext); len(lines) > 0 {
		fmt.Fprintf(&b, "\nUser %s.", strings.Join(lines, "; "))
	}
	b.WriteString("\nConfigure OPENAI_API_KEY or ANTHROPIC_API_KEY for a full answer.")
	return b.String(), nil
}

// NewRegistry registers every catalogue handler. A nil completer gives offline handlers.
func NewRegistry(completer llm.Completer) (*core.Registry, error) {
	handlers := make(map[models.HandlerID]core.Handler, len(Catalogue))
	for _, def := range Catalogue {
		if completer == nil {
			handlers[def.ID] = NewOfflineHandler(def)
		} else {
			handlers[def.ID] = NewLLMHandler(def, completer)
		}
	}
	return core.NewRegistry(handlers)
}
