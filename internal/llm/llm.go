// ABOUTME: Shared LLM plumbing: the Completer interface, decision parsing and retry
// ABOUTME: Provider clients implement Completer and core.Decider on top of these helpers
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/util"
)

// Completer generates text for a system prompt and a user prompt
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrEmptyCompletion is returned when a provider answers with no text
var ErrEmptyCompletion = errors.New("empty completion")

// DecideWith asks a completer for a routing decision and parses the JSON it returns
func DecideWith(ctx context.Context, c Completer, prompt core.PlannerPrompt) (models.DecisionShape, error) {
	text, err := c.Complete(ctx, prompt.SystemText(), prompt.UserText())
	if err != nil {
		return models.DecisionShape{}, err
	}
	return ParseDecision(text)
}

// ParseDecision extracts the decision object from a model reply.
// Code fences and prose around the JSON object are ignored.
func ParseDecision(text string) (models.DecisionShape, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.DecisionShape{}, fmt.Errorf("no JSON object in response: %q", models.Clip(text, 80))
	}

	var shape models.DecisionShape
	if err := json.Unmarshal([]byte(text[start:end+1]), &shape); err != nil {
		return models.DecisionShape{}, fmt.Errorf("failed to parse decision JSON: %w", err)
	}
	return shape, nil
}

// retry runs fn up to maxRetries+1 times with exponential backoff between attempts
func retry(ctx context.Context, maxRetries int, delay time.Duration, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s canceled after %d attempts: %w", op, attempt, lastErr)
			case <-time.After(util.CalculateBackoff(delay, attempt)):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", op, lastErr)
		}
	}

	return fmt.Errorf("failed to %s after %d attempts: %w", op, maxRetries+1, lastErr)
}
