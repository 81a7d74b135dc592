// ABOUTME: Classifier decision types for the fast router
// ABOUTME: Defines the two route kinds and the immutable ClassifierDecision
package models

// RouteKind represents the classifier's routing outcome
type RouteKind string

const (
	// RouteDirect - confident match, invoke the handler without planning
	RouteDirect RouteKind = "direct"

	// RouteNeedsPlanner - no confident match, escalate to the planner
	RouteNeedsPlanner RouteKind = "needs_planner"
)

// PatternConfidence is reported for every pattern-rule match. A direct-routing
// threshold above it would let rule matches route below the threshold.
const PatternConfidence = 0.95

// IsValid checks if the route kind is one of the defined values
func (r RouteKind) IsValid() bool {
	return r == RouteDirect || r == RouteNeedsPlanner
}

// ClassifierDecision is produced once per incoming message and never mutated
type ClassifierDecision struct {
	Route      RouteKind      `json:"route"`
	Handler    HandlerID      `json:"handler,omitempty"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Hints      map[string]any `json:"hints,omitempty"`
}

// IsDirect reports whether the classifier picked a handler itself
func (d ClassifierDecision) IsDirect() bool {
	return d.Route == RouteDirect
}
