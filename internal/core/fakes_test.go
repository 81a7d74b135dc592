// ABOUTME: Test doubles for the routing core: scripted decider and recording handlers
// ABOUTME: Shared by planner and orchestrator tests
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/storage"
)

// fakeDecider returns a scripted shape and counts calls
type fakeDecider struct {
	mu      sync.Mutex
	shape   models.DecisionShape
	err     error
	block   bool
	calls   int
	prompts []PlannerPrompt
}

func (f *fakeDecider) Decide(ctx context.Context, prompt PlannerPrompt) (models.DecisionShape, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return models.DecisionShape{}, ctx.Err()
	}
	return f.shape, f.err
}

func (f *fakeDecider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sequential(primary string, secondaries ...string) models.DecisionShape {
	return models.DecisionShape{
		PrimaryHandler:    primary,
		SecondaryHandlers: secondaries,
		ExecutionMode:     "sequential",
		Reasoning:         "needs several handlers",
	}
}

func single(primary string) models.DecisionShape {
	return models.DecisionShape{PrimaryHandler: primary, ExecutionMode: "single", Reasoning: "one handler is enough"}
}

// invocationLog records the order in which handlers ran
type invocationLog struct {
	mu       sync.Mutex
	order    []models.HandlerID
	requests []HandlerRequest
}

func (l *invocationLog) add(id models.HandlerID, req HandlerRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, id)
	l.requests = append(l.requests, req)
}

func (l *invocationLog) Order() []models.HandlerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.HandlerID, len(l.order))
	copy(out, l.order)
	return out
}

// recordingRegistry registers every handler; ids in failures return that error
func recordingRegistry(t *testing.T, calls *invocationLog, failures map[models.HandlerID]error) *Registry {
	t.Helper()
	handlers := map[models.HandlerID]Handler{}
	for _, id := range models.AllHandlers() {
		id := id
		handlers[id] = HandlerFunc(func(ctx context.Context, req HandlerRequest) (string, error) {
			calls.add(id, req)
			if err, ok := failures[id]; ok {
				return "", err
			}
			return fmt.Sprintf("%s result", id), nil
		})
	}
	reg, err := NewRegistry(handlers)
	require.NoError(t, err)
	return reg
}

type harness struct {
	orch    *Orchestrator
	decider *fakeDecider
	calls   *invocationLog
	store   *storage.MemoryStore
}

type harnessConfig struct {
	rules    *RuleSet
	decider  *fakeDecider
	failures map[models.HandlerID]error
	store    storage.Checkpointer
	registry *Registry
	opts     OrchestratorOptions
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	h := &harness{calls: &invocationLog{}, decider: cfg.decider}
	if h.decider == nil {
		h.decider = &fakeDecider{err: errors.New("decider not scripted")}
	}

	reg := cfg.registry
	if reg == nil {
		reg = recordingRegistry(t, h.calls, cfg.failures)
	}

	store := cfg.store
	if store == nil {
		h.store = storage.NewMemoryStore()
		store = h.store
	}

	opts := cfg.opts
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	classifier := NewClassifier(cfg.rules, ClassifierOptions{})
	planner := NewPlanner(h.decider, reg, PlannerOptions{})
	orch, err := NewOrchestrator(classifier, planner, reg, store, opts)
	require.NoError(t, err)
	h.orch = orch
	return h
}

func nodeCount(events []models.StatusEvent, node string) int {
	n := 0
	for _, ev := range events {
		if ev.Node == node {
			n++
		}
	}
	return n
}
