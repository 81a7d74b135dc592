// ABOUTME: ConversationState is the per-thread state mutated by the orchestrator
// ABOUTME: StateUpdate plus Apply implement one explicit merge rule per field
package models

import (
	"fmt"
	"time"
)

// HandlerResult is the outcome of one handler invocation
type HandlerResult struct {
	Handler  HandlerID     `json:"handler"`
	Output   string        `json:"output,omitempty"`
	Failed   bool          `json:"failed,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Investment stages tracked in UserContext
const (
	StageUnknown   = "unknown"
	StagePotential = "potential"
	StageCurrent   = "current"
)

// UserContext is what the system has learned about the user across turns
type UserContext struct {
	HasPortfolio    bool   `json:"has_portfolio,omitempty"`
	HasGoals        bool   `json:"has_goals,omitempty"`
	InvestmentStage string `json:"investment_stage,omitempty"`
}

// ConversationState is owned by a single conversation thread.
// Only the orchestrator mutates it, and only through Apply.
type ConversationState struct {
	ThreadID      string                      `json:"thread_id"`
	Messages      []Message                   `json:"messages"`
	Classifier    *ClassifierDecision         `json:"classifier,omitempty"`
	Planner       *PlannerDecision            `json:"planner,omitempty"`
	Results       map[HandlerID]HandlerResult `json:"results,omitempty"`
	Plan          *ExecutionPlan              `json:"plan,omitempty"`
	FinalResponse string                      `json:"final_response,omitempty"`
	UserContext   UserContext                 `json:"user_context"`
	LastHandler   HandlerID                   `json:"last_handler,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// NewConversationState creates an empty state for a thread
func NewConversationState(threadID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		ThreadID:    threadID,
		Messages:    []Message{},
		Results:     map[HandlerID]HandlerResult{},
		UserContext: UserContext{InvestmentStage: StageUnknown},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BeginCycle clears the per-request fields before a new message is processed.
// Messages, UserContext and LastHandler survive across cycles.
func (s *ConversationState) BeginCycle() {
	s.Classifier = nil
	s.Planner = nil
	s.Results = map[HandlerID]HandlerResult{}
	s.Plan = nil
	s.FinalResponse = ""
}

// StateUpdate is the partial update a node returns.
//
// Merge rules:
//   - Messages: appended, never replaced
//   - Results: merged by handler id, each id written at most once per cycle
//   - Plan: replaced when set; removed only via ClearPlan
//   - everything else: last writer wins
type StateUpdate struct {
	Messages      []Message
	Classifier    *ClassifierDecision
	Planner       *PlannerDecision
	Results       map[HandlerID]HandlerResult
	Plan          *ExecutionPlan
	ClearPlan     bool
	FinalResponse *string
	UserContext   *UserContext
	LastHandler   *HandlerID
}

// Apply merges an update into the state
func (s *ConversationState) Apply(u StateUpdate) error {
	if u.Plan != nil && u.ClearPlan {
		return fmt.Errorf("%w: update both sets and clears the plan", ErrSequencingInvariant)
	}
	for id := range u.Results {
		if _, exists := s.Results[id]; exists {
			return fmt.Errorf("%w: result for %q already recorded this cycle", ErrSequencingInvariant, id)
		}
	}

	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	if u.Classifier != nil {
		s.Classifier = u.Classifier
	}
	if u.Planner != nil {
		s.Planner = u.Planner
	}
	if len(u.Results) > 0 {
		if s.Results == nil {
			s.Results = map[HandlerID]HandlerResult{}
		}
		for id, r := range u.Results {
			s.Results[id] = r
		}
	}
	if u.Plan != nil {
		s.Plan = u.Plan
	}
	if u.ClearPlan {
		s.Plan = nil
	}
	if u.FinalResponse != nil {
		s.FinalResponse = *u.FinalResponse
	}
	if u.UserContext != nil {
		s.UserContext = *u.UserContext
	}
	if u.LastHandler != nil {
		s.LastHandler = *u.LastHandler
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Summary describes which fields the update touches, for status events
func (u StateUpdate) Summary() map[string]any {
	delta := map[string]any{}
	if len(u.Messages) > 0 {
		delta["messages_appended"] = len(u.Messages)
	}
	if u.Classifier != nil {
		delta["classifier"] = map[string]any{
			"route":      u.Classifier.Route,
			"handler":    u.Classifier.Handler,
			"confidence": u.Classifier.Confidence,
		}
	}
	if u.Planner != nil {
		delta["planner"] = u.Planner.String()
	}
	if len(u.Results) > 0 {
		ids := make([]string, 0, len(u.Results))
		for _, id := range HandlerPriority {
			if r, ok := u.Results[id]; ok {
				status := "ok"
				if r.Failed {
					status = "failed"
				}
				ids = append(ids, fmt.Sprintf("%s:%s", id, status))
			}
		}
		delta["results"] = ids
	}
	if u.Plan != nil {
		delta["plan"] = map[string]any{"queue": u.Plan.Queue, "cursor": u.Plan.Cursor}
	}
	if u.ClearPlan {
		delta["plan"] = nil
	}
	if u.FinalResponse != nil {
		delta["final_response_chars"] = len(*u.FinalResponse)
	}
	return delta
}

// SuccessfulResults returns the recorded non-failed results in queue order
func (s *ConversationState) SuccessfulResults(queue []HandlerID) []HandlerResult {
	out := make([]HandlerResult, 0, len(queue))
	for _, id := range queue {
		if r, ok := s.Results[id]; ok && !r.Failed {
			out = append(out, r)
		}
	}
	return out
}
