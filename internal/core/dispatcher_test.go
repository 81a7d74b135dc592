// ABOUTME: Tests for the Dispatcher step function
// ABOUTME: Absent plan is done, active plan runs queue[cursor], complete plan aggregates
package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/finrouter/internal/models"
)

func TestDispatch(t *testing.T) {
	queue := []models.HandlerID{models.HandlerPortfolio, models.HandlerMarket}

	tests := []struct {
		name   string
		cursor int
		noPlan bool
		want   Step
	}{
		{name: "absent plan", noPlan: true, want: Step{Kind: StepDone}},
		{name: "first handler", cursor: 0, want: Step{Kind: StepRun, Handler: models.HandlerPortfolio}},
		{name: "second handler", cursor: 1, want: Step{Kind: StepRun, Handler: models.HandlerMarket}},
		{name: "complete plan", cursor: 2, want: Step{Kind: StepAggregate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := models.NewConversationState("thread_dispatch")
			if !tt.noPlan {
				plan, err := models.NewExecutionPlan(queue)
				require.NoError(t, err)
				plan.Cursor = tt.cursor
				state.Plan = plan
			}

			first := Dispatch(state)
			second := Dispatch(state)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second, "dispatch must be idempotent")
			if state.Plan != nil {
				assert.Equal(t, tt.cursor, state.Plan.Cursor, "dispatch must not move the cursor")
			}
		})
	}
}

func TestDispatch_NilState(t *testing.T) {
	assert.Equal(t, Step{Kind: StepDone}, Dispatch(nil))
}
