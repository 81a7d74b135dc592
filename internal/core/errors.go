// ABOUTME: Error kinds raised inside the routing core
// ABOUTME: Each is absorbed at the layer that can make a safe decision
package core

import (
	"errors"

	"github.com/harper/finrouter/internal/models"
)

var (
	// ErrInvalidInput marks an empty or malformed message log
	ErrInvalidInput = errors.New("invalid input")

	// ErrPlanner marks a failed, timed out or structurally invalid planner decision
	ErrPlanner = errors.New("planner error")

	// ErrHandler marks a handler invocation that failed
	ErrHandler = errors.New("handler error")

	// ErrSequencingInvariant marks an internally detected plan contradiction
	ErrSequencingInvariant = models.ErrSequencingInvariant
)
