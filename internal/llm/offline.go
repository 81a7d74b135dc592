// ABOUTME: Offline decider that plans from the classifier's keyword hints without an API call
// ABOUTME: Used when no provider key is configured and in local demos
package llm

import (
	"context"
	"errors"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

// OfflineMinScore is the keyword score a handler needs to join an offline plan.
// Hitting the main term of one keyword table scores at least 0.5.
const OfflineMinScore = 0.4

// ErrNoOfflineDecision means the hints were too weak to plan from
var ErrNoOfflineDecision = errors.New("offline decider found no handler above threshold")

// OfflineDecider turns the classifier's ranked keyword scores into a decision.
// One strong handler gives a single plan, several give a sequential plan in score order.
type OfflineDecider struct {
	MinScore    float64
	MaxHandlers int
}

// NewOfflineDecider returns a decider with the default thresholds
func NewOfflineDecider() *OfflineDecider {
	return &OfflineDecider{MinScore: OfflineMinScore, MaxHandlers: 3}
}

// Decide implements core.Decider
func (d *OfflineDecider) Decide(ctx context.Context, prompt core.PlannerPrompt) (models.DecisionShape, error) {
	if err := ctx.Err(); err != nil {
		return models.DecisionShape{}, err
	}

	scores, _ := prompt.Hints["keyword_scores"].([]core.HandlerScore)
	var picked []string
	for _, s := range scores {
		if s.Score < d.MinScore {
			continue
		}
		picked = append(picked, string(s.Handler))
		if d.MaxHandlers > 0 && len(picked) == d.MaxHandlers {
			break
		}
	}

	switch {
	case len(picked) > 1:
		return models.DecisionShape{
			PrimaryHandler:    picked[0],
			SecondaryHandlers: picked[1:],
			ExecutionMode:     string(models.ModeSequential),
			Reasoning:         "several handlers matched the question's keywords",
		}, nil
	case len(picked) == 1:
		return models.DecisionShape{
			PrimaryHandler: picked[0],
			ExecutionMode:  string(models.ModeSingle),
			Reasoning:      "one handler matched the question's keywords",
		}, nil
	case prompt.LastHandler != "":
		return models.DecisionShape{
			PrimaryHandler: string(prompt.LastHandler),
			ExecutionMode:  string(models.ModeSingle),
			Reasoning:      "continuing with the previous handler",
		}, nil
	}
	return models.DecisionShape{}, ErrNoOfflineDecision
}
