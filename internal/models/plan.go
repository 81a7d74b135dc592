// ABOUTME: ExecutionPlan tracks progress through a multi-handler sequential run
// ABOUTME: Ordered queue plus a forward-only cursor; complete when cursor == len(queue)
package models

import (
	"errors"
	"fmt"
)

// ErrSequencingInvariant marks an internally detected contradiction in plan sequencing
var ErrSequencingInvariant = errors.New("sequencing invariant violation")

// PlanStatus is the lifecycle position of an execution plan
type PlanStatus string

const (
	PlanAbsent   PlanStatus = "absent"
	PlanActive   PlanStatus = "active"
	PlanComplete PlanStatus = "complete"
)

// ExecutionPlan is the ordered handler queue of a multi-handler run.
// Invariant: 0 <= Cursor <= len(Queue), and Cursor never decreases.
type ExecutionPlan struct {
	Queue          []HandlerID `json:"queue"`
	Cursor         int         `json:"cursor"`
	NeedsSynthesis bool        `json:"needs_synthesis"`
}

// NewExecutionPlan builds a plan for the given queue.
// Empty queues, unknown ids and duplicates are rejected.
func NewExecutionPlan(queue []HandlerID) (*ExecutionPlan, error) {
	if len(queue) == 0 {
		return nil, fmt.Errorf("%w: plan queue is empty", ErrSequencingInvariant)
	}
	seen := make(map[HandlerID]bool, len(queue))
	for _, id := range queue {
		if !id.IsValid() {
			return nil, fmt.Errorf("%w: unknown handler %q in plan", ErrSequencingInvariant, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: handler %q queued twice", ErrSequencingInvariant, id)
		}
		seen[id] = true
	}

	q := make([]HandlerID, len(queue))
	copy(q, queue)
	return &ExecutionPlan{
		Queue:          q,
		Cursor:         0,
		NeedsSynthesis: len(q) > 1,
	}, nil
}

// StatusOf reports the status of a possibly nil plan
func StatusOf(p *ExecutionPlan) PlanStatus {
	if p == nil {
		return PlanAbsent
	}
	if p.IsComplete() {
		return PlanComplete
	}
	return PlanActive
}

// IsComplete reports whether every queued handler has succeeded
func (p *ExecutionPlan) IsComplete() bool {
	return p.Cursor >= len(p.Queue)
}

// Current returns the handler at the cursor, if any
func (p *ExecutionPlan) Current() (HandlerID, bool) {
	if p.Cursor < 0 || p.Cursor >= len(p.Queue) {
		return "", false
	}
	return p.Queue[p.Cursor], true
}

// Advance records the successful completion of the handler at the cursor.
// Completing anything other than queue[cursor] is a sequencing violation.
func (p *ExecutionPlan) Advance(completed HandlerID) error {
	current, ok := p.Current()
	if !ok {
		return fmt.Errorf("%w: advance on complete plan", ErrSequencingInvariant)
	}
	if current != completed {
		return fmt.Errorf("%w: completed %q but plan expected %q", ErrSequencingInvariant, completed, current)
	}
	p.Cursor++
	return nil
}

// Remaining returns the handlers that have not yet run
func (p *ExecutionPlan) Remaining() []HandlerID {
	if p.Cursor >= len(p.Queue) {
		return nil
	}
	out := make([]HandlerID, len(p.Queue)-p.Cursor)
	copy(out, p.Queue[p.Cursor:])
	return out
}

// Check verifies the structural invariants of the plan
func (p *ExecutionPlan) Check() error {
	if len(p.Queue) == 0 {
		return fmt.Errorf("%w: plan queue is empty", ErrSequencingInvariant)
	}
	if p.Cursor < 0 || p.Cursor > len(p.Queue) {
		return fmt.Errorf("%w: cursor %d outside [0,%d]", ErrSequencingInvariant, p.Cursor, len(p.Queue))
	}
	return nil
}

// Clone returns a deep copy of the plan
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}
	q := make([]HandlerID, len(p.Queue))
	copy(q, p.Queue)
	return &ExecutionPlan{Queue: q, Cursor: p.Cursor, NeedsSynthesis: p.NeedsSynthesis}
}
