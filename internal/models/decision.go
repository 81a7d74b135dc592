// ABOUTME: Planner decision types and validation
// ABOUTME: DecisionShape is the raw capability output, PlannerDecision the validated form
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionMode says how the handlers of a decision are run
type ExecutionMode string

const (
	// ModeSingle runs only the primary handler
	ModeSingle ExecutionMode = "single"

	// ModeSequential runs primary then secondaries, one at a time
	ModeSequential ExecutionMode = "sequential"

	// ModeParallel is reserved. It is accepted by the vocabulary but never executed.
	ModeParallel ExecutionMode = "parallel"
)

// IsExecutable reports whether this release can run the mode
func (m ExecutionMode) IsExecutable() bool {
	return m == ModeSingle || m == ModeSequential
}

// DecisionShape is the unvalidated decision returned by a decision-making capability
type DecisionShape struct {
	PrimaryHandler    string   `json:"primary_handler"`
	SecondaryHandlers []string `json:"secondary_handlers"`
	ExecutionMode     string   `json:"execution_mode"`
	Reasoning         string   `json:"reasoning"`
}

// PlannerDecision is a validated routing plan
type PlannerDecision struct {
	Primary   HandlerID     `json:"primary"`
	Secondary []HandlerID   `json:"secondary,omitempty"`
	Mode      ExecutionMode `json:"mode"`
	Reasoning string        `json:"reasoning"`
	Steps     []string      `json:"steps,omitempty"`
	// Degraded is set when the decision is a fallback rather than the capability's answer
	Degraded bool `json:"degraded,omitempty"`
}

// Validate enforces the structural invariants of a decision
func (d PlannerDecision) Validate() error {
	if !d.Primary.IsValid() {
		return fmt.Errorf("invalid primary handler %q", d.Primary)
	}
	if !d.Mode.IsExecutable() {
		return fmt.Errorf("execution mode %q is not supported", d.Mode)
	}
	if d.Mode == ModeSequential && len(d.Secondary) == 0 {
		return errors.New("sequential mode requires at least one secondary handler")
	}
	seen := map[HandlerID]bool{d.Primary: true}
	for _, id := range d.Secondary {
		if !id.IsValid() {
			return fmt.Errorf("invalid secondary handler %q", id)
		}
		if seen[id] {
			return fmt.Errorf("handler %q appears more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// IsMultiHandler reports whether the decision resolves to more than one handler
func (d PlannerDecision) IsMultiHandler() bool {
	return d.Mode == ModeSequential && len(d.Secondary) > 0
}

// Queue returns the handlers in execution order (primary first)
func (d PlannerDecision) Queue() []HandlerID {
	queue := make([]HandlerID, 0, 1+len(d.Secondary))
	queue = append(queue, d.Primary)
	return append(queue, d.Secondary...)
}

// WorkflowSteps renders the human readable step list for a sequential decision
func WorkflowSteps(queue []HandlerID) []string {
	steps := make([]string, 0, len(queue)+1)
	for i, id := range queue {
		steps = append(steps, fmt.Sprintf("%d. Call %s handler", i+1, id))
	}
	steps = append(steps, fmt.Sprintf("%d. Synthesize results", len(queue)+1))
	return steps
}

// String renders a compact summary, e.g. "sequential: portfolio -> market"
func (d PlannerDecision) String() string {
	ids := make([]string, 0, 1+len(d.Secondary))
	for _, id := range d.Queue() {
		ids = append(ids, string(id))
	}
	if d.Mode != ModeSequential {
		ids = ids[:1]
	}
	return fmt.Sprintf("%s: %s", d.Mode, strings.Join(ids, " -> "))
}
