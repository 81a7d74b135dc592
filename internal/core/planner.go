// ABOUTME: Planner turns an uncertain request into a validated single or sequential plan
// ABOUTME: Any failure of the decision capability degrades to the default handler
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/finrouter/internal/models"
)

// Decider is the external decision-making capability used by the planner
type Decider interface {
	Decide(ctx context.Context, prompt PlannerPrompt) (models.DecisionShape, error)
}

// PlannerOptions configures a Planner
type PlannerOptions struct {
	DefaultHandler  models.HandlerID
	ContextMessages int
	Timeout         time.Duration
}

// Planner consults the Decider once per call and validates its answer
type Planner struct {
	decider         Decider
	registry        *Registry
	defaultHandler  models.HandlerID
	contextMessages int
	timeout         time.Duration
}

// NewPlanner creates a Planner bound to a registry
func NewPlanner(decider Decider, registry *Registry, opts PlannerOptions) *Planner {
	if !opts.DefaultHandler.IsValid() {
		opts.DefaultHandler = models.HandlerEducation
	}
	if opts.ContextMessages <= 0 {
		opts.ContextMessages = models.DefaultContextMessages
	}
	return &Planner{
		decider:         decider,
		registry:        registry,
		defaultHandler:  opts.DefaultHandler,
		contextMessages: opts.ContextMessages,
		timeout:         opts.Timeout,
	}
}

// Prompt builds the decision context for a state
func (p *Planner) Prompt(state *models.ConversationState) PlannerPrompt {
	prompt := PlannerPrompt{
		History:     models.TrimMessages(state.Messages, p.contextMessages),
		Handlers:    p.registry.Catalogue(),
		UserContext: state.UserContext,
		LastHandler: state.LastHandler,
	}
	if latest, ok := models.LastUserMessage(state.Messages); ok {
		prompt.Message = latest.Content
	}
	if state.Classifier != nil {
		prompt.Hints = state.Classifier.Hints
	}
	return prompt
}

// Plan returns the decision for the state. It never fails: the error return
// carries the cause of a degraded decision and is nil otherwise.
func (p *Planner) Plan(ctx context.Context, state *models.ConversationState) (models.PlannerDecision, error) {
	if p.decider == nil {
		err := fmt.Errorf("%w: no decision capability configured", ErrPlanner)
		return p.Fallback(err), err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	shape, err := p.decider.Decide(ctx, p.Prompt(state))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: decision timed out", ErrPlanner)
		} else {
			err = fmt.Errorf("%w: %v", ErrPlanner, err)
		}
		return p.Fallback(err), err
	}

	decision, err := p.resolve(shape)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPlanner, err)
		return p.Fallback(err), err
	}
	return decision, nil
}

// resolve validates a raw shape into a decision
func (p *Planner) resolve(shape models.DecisionShape) (models.PlannerDecision, error) {
	primary, err := p.parseRegistered(shape.PrimaryHandler)
	if err != nil {
		return models.PlannerDecision{}, err
	}

	mode := models.ExecutionMode(strings.ToLower(strings.TrimSpace(shape.ExecutionMode)))
	if mode == "" {
		mode = models.ModeSingle
	}

	decision := models.PlannerDecision{
		Primary:   primary,
		Mode:      mode,
		Reasoning: strings.TrimSpace(shape.Reasoning),
	}

	if mode == models.ModeSequential {
		for _, raw := range shape.SecondaryHandlers {
			id, err := p.parseRegistered(raw)
			if err != nil {
				return models.PlannerDecision{}, err
			}
			decision.Secondary = append(decision.Secondary, id)
		}
	}

	if err := decision.Validate(); err != nil {
		return models.PlannerDecision{}, err
	}

	if decision.Mode == models.ModeSequential {
		decision.Steps = models.WorkflowSteps(decision.Queue())
	}
	if decision.Reasoning == "" {
		decision.Reasoning = fmt.Sprintf("planner selected %s", decision.String())
	}
	return decision, nil
}

func (p *Planner) parseRegistered(raw string) (models.HandlerID, error) {
	id, err := models.ParseHandlerID(raw)
	if err != nil {
		return "", err
	}
	if !p.registry.Has(id) {
		return "", fmt.Errorf("handler %q is not registered", id)
	}
	return id, nil
}

// Fallback is the deterministic degraded decision, also used when the
// orchestrator detects a sequencing invariant violation
func (p *Planner) Fallback(cause error) models.PlannerDecision {
	return models.PlannerDecision{
		Primary:   p.defaultHandler,
		Mode:      models.ModeSingle,
		Reasoning: fmt.Sprintf("planner fallback (%v)", cause),
		Degraded:  true,
	}
}
