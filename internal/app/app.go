// ABOUTME: Builds a ready Orchestrator from configuration
// ABOUTME: Chooses the LLM provider, state backend and routing rules in one place
package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/finrouter/internal/charm"
	"github.com/harper/finrouter/internal/config"
	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/handlers"
	"github.com/harper/finrouter/internal/llm"
	"github.com/harper/finrouter/internal/storage"
	"github.com/harper/finrouter/internal/storage/sqlite"
)

// App is a wired router with the resources it owns
type App struct {
	Config       *config.Config
	Provider     *llm.Provider
	Orchestrator *core.Orchestrator
	Logger       *log.Logger

	sqlite  *sqlite.Store
	charm   *charm.Client
	closers []io.Closer
}

// New wires the router described by cfg. A nil logger discards output.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	a := &App{Config: cfg, Logger: logger}

	provider, err := a.newProvider()
	if err != nil {
		return nil, err
	}
	a.Provider = provider

	store, err := a.newStore()
	if err != nil {
		return nil, err
	}

	rules := core.DefaultRuleSet()
	if cfg.RulesFile != "" {
		rules, err = core.LoadRuleSet(cfg.RulesFile)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	registry, err := handlers.NewRegistry(provider.Completer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building handler registry: %w", err)
	}

	classifier := core.NewClassifier(rules, core.ClassifierOptions{
		Threshold:      cfg.DirectThreshold,
		DefaultHandler: cfg.DefaultHandlerID(),
	})
	planner := core.NewPlanner(provider.Decider, registry, core.PlannerOptions{
		DefaultHandler:  cfg.DefaultHandlerID(),
		ContextMessages: cfg.PlannerContextMessages,
		Timeout:         cfg.PlannerTimeout,
	})
	orch, err := core.NewOrchestrator(classifier, planner, registry, store, core.OrchestratorOptions{
		HandlerTimeout: cfg.HandlerTimeout,
		Logger:         logger.WithPrefix("router"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Orchestrator = orch

	logger.Debug("router ready",
		"provider", provider.Name,
		"model", provider.Model,
		"backend", cfg.StateBackend,
		"handlers", len(registry.IDs()))
	return a, nil
}

// newProvider falls back to the offline provider when the chosen one has no key
func (a *App) newProvider() (*llm.Provider, error) {
	cfg := *a.Config
	switch {
	case cfg.Provider == config.ProviderOpenAI && cfg.OpenAIKey == "":
		a.Logger.Warn("OPENAI_API_KEY not set, using offline provider")
		cfg.Provider = config.ProviderOffline
	case cfg.Provider == config.ProviderAnthropic && cfg.AnthropicKey == "":
		a.Logger.Warn("ANTHROPIC_API_KEY not set, using offline provider")
		cfg.Provider = config.ProviderOffline
	}
	return llm.NewProvider(&cfg)
}

func (a *App) newStore() (storage.Checkpointer, error) {
	cfg := a.Config
	switch cfg.StateBackend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil

	case config.BackendCharm:
		client, err := charm.NewClient(&charm.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			AutoSync: cfg.AutoSync,
		})
		if err != nil {
			return nil, fmt.Errorf("opening charm backend: %w", err)
		}
		a.charm = client
		a.closers = append(a.closers, client)
		return charm.NewCheckpointer(client), nil

	default:
		path := cfg.DBPath
		if path == "" {
			path = sqlite.DefaultDBPath()
		}
		store, err := sqlite.NewStoreWithPath(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite backend: %w", err)
		}
		a.sqlite = store
		a.closers = append(a.closers, store)
		return store, nil
	}
}

// SQLite returns the sqlite store when that backend is active
func (a *App) SQLite() (*sqlite.Store, bool) {
	return a.sqlite, a.sqlite != nil
}

// Charm returns the charm client when that backend is active
func (a *App) Charm() (*charm.Client, bool) {
	return a.charm, a.charm != nil
}

// Close releases the state backend
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
