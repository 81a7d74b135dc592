// ABOUTME: Tests for the handler catalogue, prompt rendering and registry construction
// ABOUTME: A recording completer stands in for the language model
package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

type recordingCompleter struct {
	system string
	user   string
	reply  string
	err    error
}

func (r *recordingCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	r.system = system
	r.user = user
	return r.reply, r.err
}

func TestCatalogueCoversEveryHandler(t *testing.T) {
	if len(Catalogue) != len(models.AllHandlers()) {
		t.Fatalf("len(Catalogue) = %d, want %d", len(Catalogue), len(models.AllHandlers()))
	}
	for _, id := range models.AllHandlers() {
		def, ok := DefinitionFor(id)
		if !ok {
			t.Errorf("DefinitionFor(%s) missing", id)
			continue
		}
		if def.Description == "" || def.SystemPrompt == "" {
			t.Errorf("%s has an empty description or prompt", id)
		}
	}
	if _, ok := DefinitionFor("tax"); ok {
		t.Error("DefinitionFor(tax) should not exist")
	}
}

func TestLLMHandler_Invoke(t *testing.T) {
	def, _ := DefinitionFor(models.HandlerMarket)
	completer := &recordingCompleter{reply: "  Markets are up.  \n"}
	h := NewLLMHandler(def, completer)

	out, err := h.Invoke(context.Background(), core.HandlerRequest{Message: "how are markets"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if out != "Markets are up." {
		t.Errorf("Invoke() = %q", out)
	}
	if completer.system != def.SystemPrompt {
		t.Error("handler did not send its system prompt")
	}

	completer.err = errors.New("rate limited")
	if _, err := h.Invoke(context.Background(), core.HandlerRequest{Message: "x"}); err == nil || !strings.Contains(err.Error(), "market handler") {
		t.Errorf("Invoke() error = %v, want wrapped handler error", err)
	}
}

func TestRenderRequest(t *testing.T) {
	q1, _ := models.NewUserMessage("I hold VTI and BND")
	q2, _ := models.NewUserMessage("how is my portfolio doing")
	req := core.HandlerRequest{
		Message: "how is my portfolio doing",
		History: []models.Message{
			*q1,
			models.NewAssistantMessage(models.HandlerPortfolio, "You are 60/40."),
			*q2,
		},
		UserContext: models.UserContext{HasPortfolio: true, InvestmentStage: models.StageCurrent},
		Prior: []models.HandlerResult{
			{Handler: models.HandlerPortfolio, Output: "Allocation is 60/40."},
		},
	}

	got := RenderRequest(req)

	for _, want := range []string{
		"[user] I hold VTI and BND",
		"[assistant] You are 60/40.",
		"has an existing portfolio",
		"is a current investor",
		"Allocation is 60/40.",
		"Build on the earlier analysis",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderRequest() missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "Question: how is my portfolio doing") {
		t.Errorf("RenderRequest() should end with the question, got %q", got)
	}
	if strings.Count(got, "how is my portfolio doing") != 1 {
		t.Error("current message should not be repeated in the history block")
	}
}

func TestRenderRequest_ClipsPriorOutputOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("日本株", maxPriorChars)
	req := core.HandlerRequest{
		Message: "and what about goals?",
		Prior:   []models.HandlerResult{{Handler: models.HandlerMarket, Output: long}},
	}

	got := RenderRequest(req)
	if !utf8.ValidString(got) {
		t.Fatal("RenderRequest() produced invalid UTF-8 from a multi-byte answer")
	}
	if !strings.Contains(got, models.Clip(long, maxPriorChars)) {
		t.Error("RenderRequest() should quote the clipped earlier answer")
	}
	if strings.Contains(got, long) {
		t.Error("RenderRequest() quoted the earlier answer unclipped")
	}
}

func TestOfflineHandler_Invoke(t *testing.T) {
	def, _ := DefinitionFor(models.HandlerGoalPlanning)
	h := NewOfflineHandler(def)

	out, err := h.Invoke(context.Background(), core.HandlerRequest{
		Message: "save for a house",
		Prior:   []models.HandlerResult{{Handler: models.HandlerPortfolio, Output: "x"}},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(out, `"save for a house"`) || !strings.Contains(out, "offline") {
		t.Errorf("Invoke() = %q", out)
	}
	if !strings.Contains(out, "Building on: "+models.HandlerPortfolio.Label()) {
		t.Errorf("Invoke() should mention prior handlers, got %q", out)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Invoke(ctx, core.HandlerRequest{Message: "x"}); err == nil {
		t.Error("Invoke() should fail on a canceled context")
	}
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name      string
		completer *recordingCompleter
	}{
		{"offline", nil},
		{"llm", &recordingCompleter{reply: "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reg *core.Registry
			var err error
			if tt.completer == nil {
				reg, err = NewRegistry(nil)
			} else {
				reg, err = NewRegistry(tt.completer)
			}
			if err != nil {
				t.Fatalf("NewRegistry() error = %v", err)
			}
			for _, id := range models.AllHandlers() {
				if !reg.Has(id) {
					t.Errorf("registry missing %s", id)
				}
			}
			for _, info := range reg.Catalogue() {
				if info.Description == "" {
					t.Errorf("%s has no description in the catalogue", info.ID)
				}
			}
		})
	}
}
