// ABOUTME: Orchestrator runs one request cycle per incoming message
// ABOUTME: Classifier -> (direct handler | Planner) -> handlers -> Dispatcher loop -> Aggregator
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/storage"
)

// OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	// HandlerTimeout bounds each handler invocation; zero means no limit
	HandlerTimeout time.Duration
	Logger         *log.Logger
	Metrics        *RoutingMetrics
}

// Orchestrator owns the per-thread request cycle
type Orchestrator struct {
	classifier     *Classifier
	planner        *Planner
	registry       *Registry
	store          storage.Checkpointer
	metrics        *RoutingMetrics
	logger         *log.Logger
	handlerTimeout time.Duration
	locks          threadLocks
}

// NewOrchestrator wires the routing core. A nil store keeps threads in memory.
func NewOrchestrator(classifier *Classifier, planner *Planner, registry *Registry, store storage.Checkpointer, opts OrchestratorOptions) (*Orchestrator, error) {
	if classifier == nil || planner == nil || registry == nil {
		return nil, errors.New("orchestrator needs a classifier, a planner and a registry")
	}
	if !registry.Has(classifier.defaultHandler) {
		return nil, fmt.Errorf("default handler %q is not registered", classifier.defaultHandler)
	}
	if !registry.Has(planner.defaultHandler) {
		return nil, fmt.Errorf("planner fallback handler %q is not registered", planner.defaultHandler)
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewRoutingMetrics()
	}
	return &Orchestrator{
		classifier:     classifier,
		planner:        planner,
		registry:       registry,
		store:          store,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		handlerTimeout: opts.HandlerTimeout,
		locks:          threadLocks{locks: map[string]*threadLock{}},
	}, nil
}

// Classifier returns the classifier used for routing
func (o *Orchestrator) Classifier() *Classifier { return o.classifier }

// Registry returns the handler registry
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Store returns the checkpointer
func (o *Orchestrator) Store() storage.Checkpointer { return o.store }

// Metrics returns the in-process routing metrics
func (o *Orchestrator) Metrics() *RoutingMetrics { return o.metrics }

// Thread loads a stored thread; it returns (nil, nil) when the thread does not exist
func (o *Orchestrator) Thread(ctx context.Context, threadID string) (*models.ConversationState, error) {
	return o.store.Load(ctx, threadID)
}

// ListThreads lists stored threads when the store supports it
func (o *Orchestrator) ListThreads(ctx context.Context, limit int) ([]models.ThreadSummary, error) {
	lister, ok := o.store.(storage.ThreadLister)
	if !ok {
		return nil, errors.New("state backend cannot list threads")
	}
	return lister.ListThreads(ctx, limit)
}

// Stats returns persisted routing statistics when the store keeps them,
// otherwise the in-process metrics
func (o *Orchestrator) Stats(ctx context.Context) (models.RoutingStats, error) {
	if rr, ok := o.store.(storage.RunRecorder); ok {
		return rr.RoutingStats(ctx)
	}
	return o.metrics.Snapshot(), nil
}

// SubmitOption customizes one Submit call
type SubmitOption func(*submitConfig)

type submitConfig struct {
	observer func(models.StatusEvent)
}

// WithObserver delivers every StatusEvent synchronously as it happens
func WithObserver(fn func(models.StatusEvent)) SubmitOption {
	return func(c *submitConfig) {
		c.observer = fn
	}
}

// Run is the outcome of one request cycle
type Run struct {
	ThreadID string
	State    *models.ConversationState
	Events   []models.StatusEvent
	Phase    models.Phase
	Route    models.RouteKind
	// Handlers lists the handlers invoked, in order
	Handlers []models.HandlerID
	Degraded bool
	// Failure is the handler failure behind an Error phase, if any
	Failure error
}

// FinalResponse returns the response shown to the user
func (r *Run) FinalResponse() string {
	if r == nil || r.State == nil {
		return ""
	}
	return r.State.FinalResponse
}

// Submit processes one message for a thread. An empty threadID starts a new thread.
// The returned Run always carries a well-formed response; the error is non-nil
// only when the thread could not be loaded or saved.
func (o *Orchestrator) Submit(ctx context.Context, threadID, message string, opts ...SubmitOption) (*Run, error) {
	cfg := submitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if threadID == "" {
		threadID = models.NewThreadID()
	}

	unlock := o.locks.lock(threadID)
	defer unlock()

	start := time.Now()
	c := &cycle{
		o:        o,
		observer: cfg.observer,
		logger:   o.logger.With("thread", threadID),
		run:      &Run{ThreadID: threadID, Phase: models.PhaseRouting},
	}

	state, err := o.store.Load(ctx, threadID)
	if err != nil {
		c.logger.Error("failed to load thread", "err", err)
		state = models.NewConversationState(threadID)
		state.FinalResponse = "⚠ This conversation could not be loaded. Please try again."
		c.run.State = state
		c.run.Phase = models.PhaseError
		return c.run, fmt.Errorf("loading thread %s: %w", threadID, err)
	}
	if state == nil {
		state = models.NewConversationState(threadID)
	}
	state.BeginCycle()
	c.state = state
	c.run.State = state

	c.execute(ctx, message)

	c.record.ThreadID = threadID
	c.record.Phase = c.run.Phase
	c.record.Duration = time.Since(start)
	c.record.At = time.Now().UTC()
	c.run.Route = c.record.Route
	c.run.Handlers = c.record.Handlers
	c.run.Degraded = c.record.Degraded

	if err := o.store.Save(ctx, threadID, state); err != nil {
		c.logger.Error("failed to save thread", "err", err)
		return c.run, fmt.Errorf("saving thread %s: %w", threadID, err)
	}

	o.metrics.Record(c.record)
	if rr, ok := o.store.(storage.RunRecorder); ok {
		if err := rr.RecordRun(ctx, c.record); err != nil {
			c.logger.Warn("failed to record run", "err", err)
		}
	}

	c.logger.Info("request complete",
		"route", c.record.Route,
		"handlers", c.record.Handlers,
		"phase", c.run.Phase,
		"duration", c.record.Duration.Round(time.Millisecond))
	return c.run, nil
}

// cycle is the mutable context of one Submit call
type cycle struct {
	o        *Orchestrator
	state    *models.ConversationState
	run      *Run
	observer func(models.StatusEvent)
	logger   *log.Logger
	message  string
	seq      int
	record   models.RunRecord
}

func (c *cycle) execute(ctx context.Context, message string) {
	var history []models.Message
	msg, err := models.NewUserMessage(message)
	if err != nil {
		c.logger.Warn("routing to default handler", "err", fmt.Errorf("%w: %v", ErrInvalidInput, err))
		c.emit(models.NodeInput, models.PhaseRouting, map[string]any{"invalid_input": err.Error()})
	} else {
		c.message = msg.Content
		_ = c.apply(models.NodeInput, models.PhaseRouting, models.StateUpdate{Messages: []models.Message{*msg}})
		history = c.state.Messages
	}

	decision := c.o.classifier.Classify(history)
	c.record.Route = decision.Route

	if decision.IsDirect() {
		c.record.Mode = models.ModeSingle
		_ = c.apply(models.NodeClassifier, models.PhaseDirectExecute, models.StateUpdate{Classifier: &decision})
		c.runHandlers(ctx, decision.Handler)
		return
	}

	_ = c.apply(models.NodeClassifier, models.PhasePlanning, models.StateUpdate{Classifier: &decision})

	plan, cause := c.o.planner.Plan(ctx, c.state)
	if cause != nil {
		c.logger.Warn("planner degraded", "err", cause)
	}
	update := models.StateUpdate{Planner: &plan}
	if plan.IsMultiHandler() {
		ep, err := models.NewExecutionPlan(plan.Queue())
		if err != nil {
			c.logger.Error("rejected execution plan", "err", err)
			plan = c.o.planner.Fallback(err)
			update.Planner = &plan
		} else {
			update.Plan = ep
		}
	}
	c.record.Mode = plan.Mode
	c.record.Degraded = plan.Degraded
	_ = c.apply(models.NodePlanner, models.PhaseExecuting, update)

	c.runHandlers(ctx, plan.Primary)
}

// runHandlers executes first, then whatever the Dispatcher names, until done
func (c *cycle) runHandlers(ctx context.Context, first models.HandlerID) {
	next := first
	for i := 0; ; i++ {
		if i > len(models.HandlerPriority) {
			c.recoverInvariant(ctx, fmt.Errorf("%w: dispatcher did not terminate", ErrSequencingInvariant))
			return
		}

		result := c.invoke(ctx, next)
		if result.Failed {
			c.abort(next, result)
			return
		}
		if err := c.complete(next, result); err != nil {
			c.recoverInvariant(ctx, err)
			return
		}

		step := Dispatch(c.state)
		switch step.Kind {
		case StepRun:
			c.emit(models.NodeDispatcher, models.PhaseExecuting, map[string]any{"step": step.Kind, "handler": step.Handler})
			next = step.Handler
		case StepAggregate:
			c.emit(models.NodeDispatcher, models.PhaseAggregating, map[string]any{"step": step.Kind})
			c.aggregate()
			return
		default:
			c.emit(models.NodeDispatcher, models.PhaseDone, map[string]any{"step": step.Kind})
			c.finish(result.Output)
			return
		}
	}
}

// invoke calls one handler; it never retries
func (c *cycle) invoke(ctx context.Context, id models.HandlerID) models.HandlerResult {
	c.record.Handlers = append(c.record.Handlers, id)
	result := models.HandlerResult{Handler: id}

	h, ok := c.o.registry.Lookup(id)
	if !ok {
		result.Failed = true
		result.Error = "handler is not registered"
		return result
	}

	var queue []models.HandlerID
	if c.state.Plan != nil {
		queue = c.state.Plan.Queue
	}
	req := HandlerRequest{
		ThreadID:    c.state.ThreadID,
		Message:     c.message,
		History:     models.TrimForHandler(c.state.Messages, id),
		UserContext: c.state.UserContext,
		Prior:       c.state.SuccessfulResults(queue),
	}

	hctx := ctx
	if c.o.handlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.o.handlerTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := safeInvoke(hctx, h, req)
	result.Duration = time.Since(start)

	if err == nil && strings.TrimSpace(output) == "" {
		err = errors.New("handler returned an empty response")
	}
	if err != nil {
		// only the handler's own deadline is reported as a timeout; a caller
		// deadline keeps the handler's error
		if c.o.handlerTimeout > 0 && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", c.o.handlerTimeout)
		}
		result.Failed = true
		result.Error = err.Error()
		c.logger.Warn("handler failed", "handler", id, "err", fmt.Errorf("%w: %v", ErrHandler, err))
		return result
	}

	result.Output = output
	c.logger.Debug("handler completed", "handler", id, "duration", result.Duration)
	return result
}

func safeInvoke(ctx context.Context, h Handler, req HandlerRequest) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Invoke(ctx, req)
}

// complete records a successful result, appends it to the log and advances the plan
func (c *cycle) complete(id models.HandlerID, result models.HandlerResult) error {
	update := models.StateUpdate{
		Results:     map[models.HandlerID]models.HandlerResult{id: result},
		Messages:    []models.Message{models.NewAssistantMessage(id, result.Output)},
		LastHandler: &id,
	}
	if uc, changed := UpdateUserContext(c.state.UserContext, id, c.message); changed {
		update.UserContext = &uc
	}
	if c.state.Plan != nil {
		plan := c.state.Plan.Clone()
		if err := plan.Advance(id); err != nil {
			return err
		}
		update.Plan = plan
	}
	return c.apply(models.HandlerNode(id), models.PhaseDispatching, update)
}

// abort ends the cycle after a handler failure. The plan is cleared, later
// handlers never run and the aggregator is skipped.
func (c *cycle) abort(id models.HandlerID, result models.HandlerResult) {
	queue := []models.HandlerID{id}
	var skipped []models.HandlerID
	if c.state.Plan != nil {
		queue = c.state.Plan.Queue
		if remaining := c.state.Plan.Remaining(); len(remaining) > 1 {
			skipped = remaining[1:]
		}
	}

	notice := PartialResponse(queue, c.state.Results, id, result.Error, skipped)
	update := models.StateUpdate{
		Results:       map[models.HandlerID]models.HandlerResult{id: result},
		Messages:      []models.Message{models.NewAssistantMessage("", notice)},
		ClearPlan:     c.state.Plan != nil,
		FinalResponse: &notice,
	}
	c.record.Failed = true
	c.run.Failure = fmt.Errorf("%w: %s: %s", ErrHandler, id, result.Error)
	if err := c.apply(models.HandlerNode(id), models.PhaseError, update); err != nil {
		c.state.FinalResponse = notice
	}
	c.run.Phase = models.PhaseError
}

func (c *cycle) aggregate() {
	final := Aggregate(c.state.Plan.Queue, c.state.Results)
	_ = c.apply(models.NodeAggregator, models.PhaseDone, models.StateUpdate{
		Messages:      []models.Message{models.NewAssistantMessage("", final)},
		ClearPlan:     true,
		FinalResponse: &final,
	})
}

func (c *cycle) finish(output string) {
	_ = c.apply(models.NodeFinalize, models.PhaseDone, models.StateUpdate{FinalResponse: &output})
}

// recoverInvariant falls back to the default handler, reusing its result when it already ran
func (c *cycle) recoverInvariant(ctx context.Context, cause error) {
	c.logger.Error("sequencing invariant violated", "err", cause)
	decision := c.o.planner.Fallback(cause)
	c.record.Degraded = true
	_ = c.apply(models.NodePlanner, models.PhaseExecuting, models.StateUpdate{Planner: &decision, ClearPlan: true})

	id := decision.Primary
	if r, ok := c.state.Results[id]; ok && !r.Failed {
		c.finish(r.Output)
		return
	}
	result := c.invoke(ctx, id)
	if result.Failed {
		c.abort(id, result)
		return
	}
	if err := c.complete(id, result); err != nil {
		c.state.FinalResponse = result.Output
		c.run.Phase = models.PhaseDone
		return
	}
	c.finish(result.Output)
}

// apply merges an update and emits the transition event
func (c *cycle) apply(node string, phase models.Phase, update models.StateUpdate) error {
	if err := c.state.Apply(update); err != nil {
		c.logger.Error("state update rejected", "node", node, "err", err)
		return err
	}
	c.emit(node, phase, update.Summary())
	return nil
}

func (c *cycle) emit(node string, phase models.Phase, delta map[string]any) {
	c.seq++
	c.run.Phase = phase
	ev := models.StatusEvent{
		ThreadID: c.state.ThreadID,
		Seq:      c.seq,
		Node:     node,
		Phase:    phase,
		Delta:    delta,
		At:       time.Now().UTC(),
	}
	c.run.Events = append(c.run.Events, ev)
	c.logger.Debug("node transition", "node", node, "phase", phase)
	if c.observer != nil {
		c.observer(ev)
	}
}

// threadLocks serializes request cycles per thread id
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func (t *threadLocks) lock(threadID string) func() {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &threadLock{}
		t.locks[threadID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, threadID)
		}
		t.mu.Unlock()
	}
}
