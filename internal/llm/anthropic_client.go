// ABOUTME: Anthropic client for planner decisions and handler text generation
// ABOUTME: Alternative provider to OpenAI, sharing the same retry and decision parsing
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

// AnthropicConfig holds configuration for the Anthropic client
type AnthropicConfig struct {
	APIKey     string
	Model      anthropic.Model
	BaseURL    string
	MaxTokens  int64
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// AnthropicClient wraps the Anthropic SDK with retry logic
type AnthropicClient struct {
	inner      anthropic.Client
	model      anthropic.Model
	maxTokens  int64
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicClient creates an Anthropic client
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	// Retries are handled here, not in the SDK
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicClient{
		inner:      anthropic.NewClient(opts...),
		model:      model,
		maxTokens:  maxTokens,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Model returns the configured model name
func (c *AnthropicClient) Model() string {
	return string(c.model)
}

// Complete generates a free-text answer
func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	var content string
	err := retry(ctx, c.maxRetries, c.retryDelay, "complete", func(ctx context.Context) error {
		text, err := c.message(ctx, system, user)
		if err != nil {
			return err
		}
		content = text
		return nil
	})
	return content, err
}

// Decide asks the model for a routing decision
func (c *AnthropicClient) Decide(ctx context.Context, prompt core.PlannerPrompt) (models.DecisionShape, error) {
	var shape models.DecisionShape
	err := retry(ctx, c.maxRetries, c.retryDelay, "decide", func(ctx context.Context) error {
		text, err := c.message(ctx, prompt.SystemText(), prompt.UserText())
		if err != nil {
			return err
		}
		parsed, err := ParseDecision(text)
		if err != nil {
			return err
		}
		shape = parsed
		return nil
	})
	return shape, err
}

func (c *AnthropicClient) message(ctx context.Context, system, user string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	if out.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return out.String(), nil
}
