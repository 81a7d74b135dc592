// ABOUTME: Builds the configured decision and completion providers
// ABOUTME: openai and anthropic need an API key, offline needs nothing
package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/harper/finrouter/internal/config"
	"github.com/harper/finrouter/internal/core"
)

// Provider bundles the planner's decider with the completer used by handlers.
// Completer is nil for the offline provider.
type Provider struct {
	Name      string
	Model     string
	Decider   core.Decider
	Completer Completer
}

// NewProvider builds the provider named in the configuration
func NewProvider(cfg *config.Config) (*Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := NewOpenAIClientWithConfig(&ClientConfig{
			APIKey:     cfg.OpenAIKey,
			ChatModel:  cfg.OpenAIModel,
			Timeout:    cfg.LLMTimeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		return &Provider{Name: cfg.Provider, Model: client.Model(), Decider: client, Completer: client}, nil

	case config.ProviderAnthropic:
		client, err := NewAnthropicClient(AnthropicConfig{
			APIKey:     cfg.AnthropicKey,
			Model:      anthropic.Model(cfg.AnthropicModel),
			Timeout:    cfg.LLMTimeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		return &Provider{Name: cfg.Provider, Model: client.Model(), Decider: client, Completer: client}, nil

	case config.ProviderOffline:
		return &Provider{Name: cfg.Provider, Model: "keyword-hints", Decider: NewOfflineDecider()}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
