// ABOUTME: Tests for wiring the router from configuration
// ABOUTME: Uses the offline provider with memory and sqlite backends
package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/finrouter/internal/config"
	"github.com/harper/finrouter/internal/models"
)

func offlineConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Provider = config.ProviderOffline
	cfg.StateBackend = backend
	cfg.DBPath = filepath.Join(t.TempDir(), "finrouter.db")
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	a, err := New(offlineConfig(t, config.BackendMemory), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if a.Provider.Name != config.ProviderOffline {
		t.Errorf("expected offline provider, got %s", a.Provider.Name)
	}
	if _, ok := a.SQLite(); ok {
		t.Error("memory backend should not open sqlite")
	}

	run, err := a.Orchestrator.Submit(context.Background(), "", "How is my portfolio doing?")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if run.Phase != models.PhaseDone {
		t.Errorf("expected done phase, got %s", run.Phase)
	}
	if !strings.Contains(run.FinalResponse(), "Portfolio") {
		t.Errorf("expected portfolio response, got %q", run.FinalResponse())
	}
}

func TestOffline_MultiDomainQuestionPlansSequence(t *testing.T) {
	tests := []struct {
		message string
		want    []models.HandlerID
	}{
		{
			"I worry about risk in my allocation, and I also have a down payment target",
			[]models.HandlerID{models.HandlerPortfolio, models.HandlerGoalPlanning},
		},
		{
			"I hold some funds and worry about risk and allocation, plus a down payment target, and recent news",
			[]models.HandlerID{models.HandlerNews, models.HandlerPortfolio, models.HandlerGoalPlanning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			a, err := New(offlineConfig(t, config.BackendMemory), nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer a.Close()

			run, err := a.Orchestrator.Submit(context.Background(), "", tt.message)
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if run.Route != models.RouteNeedsPlanner {
				t.Errorf("route = %s, want needs_planner", run.Route)
			}
			if run.Degraded {
				t.Errorf("offline plan degraded: %s", run.State.Planner.Reasoning)
			}
			if run.State.Planner == nil || run.State.Planner.Mode != models.ModeSequential {
				t.Fatalf("expected a sequential plan, got %+v", run.State.Planner)
			}
			if len(run.Handlers) != len(tt.want) {
				t.Fatalf("handlers = %v, want %v", run.Handlers, tt.want)
			}
			for i, id := range tt.want {
				if run.Handlers[i] != id {
					t.Errorf("handlers = %v, want %v", run.Handlers, tt.want)
					break
				}
			}
			if run.Phase != models.PhaseDone {
				t.Errorf("phase = %s, want done", run.Phase)
			}
		})
	}
}

func TestNew_SQLiteBackendPersists(t *testing.T) {
	cfg := offlineConfig(t, config.BackendSQLite)

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	run, err := a.Orchestrator.Submit(context.Background(), "thread_persist", "Should I invest in NVDA?")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if run.ThreadID != "thread_persist" {
		t.Errorf("unexpected thread id %s", run.ThreadID)
	}
	if _, ok := a.SQLite(); !ok {
		t.Error("expected sqlite store")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	reopened, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	state, err := reopened.Orchestrator.Thread(context.Background(), "thread_persist")
	if err != nil {
		t.Fatalf("Thread failed: %v", err)
	}
	if state == nil || len(state.Messages) != 2 {
		t.Fatalf("expected a stored user and assistant message, got %+v", state)
	}
	if state.LastHandler != models.HandlerNews {
		t.Errorf("expected news as last handler, got %s", state.LastHandler)
	}

	stats, err := reopened.Orchestrator.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRequests != 1 || stats.FastPath != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestNew_MissingKeyFallsBackToOffline(t *testing.T) {
	tests := []struct {
		name     string
		provider string
	}{
		{"openai", config.ProviderOpenAI},
		{"anthropic", config.ProviderAnthropic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(t, config.BackendMemory)
			cfg.Provider = tt.provider
			cfg.OpenAIKey = ""
			cfg.AnthropicKey = ""

			a, err := New(cfg, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer a.Close()

			if a.Provider.Name != config.ProviderOffline {
				t.Errorf("expected offline fallback, got %s", a.Provider.Name)
			}
			if a.Provider.Completer != nil {
				t.Error("offline provider should not have a completer")
			}
		})
	}
}

func TestNew_RulesFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - name: crypto-question
    handler: education
    priority: 1
    pattern: "\\bbitcoin\\b"
`
	if err := os.WriteFile(rules, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cfg := offlineConfig(t, config.BackendMemory)
	cfg.RulesFile = rules

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	msg, _ := models.NewUserMessage("tell me about bitcoin")
	decision := a.Orchestrator.Classifier().Classify([]models.Message{*msg})
	if decision.Route != models.RouteDirect || decision.Handler != models.HandlerEducation {
		t.Errorf("expected direct education route, got %+v", decision)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"invalid provider", func(c *config.Config) { c.Provider = "bedrock" }},
		{"invalid backend", func(c *config.Config) { c.StateBackend = "redis" }},
		{"missing rules file", func(c *config.Config) { c.RulesFile = "/nonexistent/rules.yaml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(t, config.BackendMemory)
			tt.mutate(cfg)
			if _, err := New(cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
}
