// ABOUTME: Dispatcher reads the execution plan and names the next step
// ABOUTME: Pure and idempotent: the same state always yields the same step
package core

import "github.com/harper/finrouter/internal/models"

// StepKind is what the orchestrator should do next
type StepKind string

const (
	StepRun       StepKind = "run"
	StepAggregate StepKind = "aggregate"
	StepDone      StepKind = "done"
)

// Step is the dispatcher's answer. Handler is set only for StepRun.
type Step struct {
	Kind    StepKind         `json:"kind"`
	Handler models.HandlerID `json:"handler,omitempty"`
}

// Dispatch returns the next step for the state's execution plan
func Dispatch(state *models.ConversationState) Step {
	if state == nil {
		return Step{Kind: StepDone}
	}
	switch models.StatusOf(state.Plan) {
	case models.PlanActive:
		id, _ := state.Plan.Current()
		return Step{Kind: StepRun, Handler: id}
	case models.PlanComplete:
		return Step{Kind: StepAggregate}
	default:
		return Step{Kind: StepDone}
	}
}
