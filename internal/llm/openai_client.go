// ABOUTME: OpenAI client for planner decisions and handler text generation
// ABOUTME: Uses gpt-4o-mini by default (configurable) with retry and exponential backoff
package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey     string
	ChatModel  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:     apiKey,
		ChatModel:  DefaultChatModel,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.ChatModel
	if model == "" {
		model = DefaultChatModel
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		chatModel:  model,
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}, nil
}

// Model returns the chat model in use
func (c *OpenAIClient) Model() string {
	return c.chatModel
}

// Complete generates a free-text answer
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	var content string
	err := retry(ctx, c.maxRetries, c.retryDelay, "complete", func(ctx context.Context) error {
		text, err := c.chat(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages(system, user),
			Temperature: 0.4,
		})
		if err != nil {
			return err
		}
		content = text
		return nil
	})
	return content, err
}

// Decide asks the model for a routing decision in JSON mode
func (c *OpenAIClient) Decide(ctx context.Context, prompt core.PlannerPrompt) (models.DecisionShape, error) {
	var shape models.DecisionShape
	err := retry(ctx, c.maxRetries, c.retryDelay, "decide", func(ctx context.Context) error {
		text, err := c.chat(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages(prompt.SystemText(), prompt.UserText()),
			Temperature: 0.1, // Low temperature for routing
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}

		// Parse failures are retried like transport failures
		parsed, err := ParseDecision(text)
		if err != nil {
			return err
		}
		shape = parsed
		return nil
	})
	return shape, err
}

func (c *OpenAIClient) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: user,
		},
	}
}
