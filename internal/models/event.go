// ABOUTME: Orchestrator phases and the StatusEvent emitted on every node transition
// ABOUTME: Presentation layers consume these to show progress
package models

import "time"

// Phase is a state of the orchestrator state machine
type Phase string

const (
	PhaseRouting       Phase = "routing"
	PhaseDirectExecute Phase = "direct_execute"
	PhasePlanning      Phase = "planning"
	PhaseExecuting     Phase = "executing"
	PhaseDispatching   Phase = "dispatching"
	PhaseAggregating   Phase = "aggregating"
	PhaseDone          Phase = "done"
	PhaseError         Phase = "error"
)

// IsTerminal reports whether the phase ends a request cycle
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseError
}

// Node names reported in status events
const (
	NodeInput      = "input"
	NodeClassifier = "classifier"
	NodePlanner    = "planner"
	NodeDispatcher = "dispatcher"
	NodeAggregator = "aggregator"
	NodeFinalize   = "finalize"
)

// HandlerNode returns the node name of a handler invocation, e.g. "handler:market"
func HandlerNode(id HandlerID) string {
	return "handler:" + string(id)
}

// StatusEvent reports one node transition of a request cycle
type StatusEvent struct {
	ThreadID string         `json:"thread_id"`
	Seq      int            `json:"seq"`
	Node     string         `json:"node"`
	Phase    Phase          `json:"phase"`
	Delta    map[string]any `json:"delta,omitempty"`
	At       time.Time      `json:"at"`
}
