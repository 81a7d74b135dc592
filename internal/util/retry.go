// ABOUTME: Backoff schedule for retrying provider calls
// ABOUTME: Used by the llm package between planner and handler completion attempts
package util

import (
	"math/rand/v2"
	"time"
)

// MaxBackoff is the ceiling before jitter is applied.
const MaxBackoff = 30 * time.Second

// maxShift bounds the doubling so the cap check cannot overflow.
const maxShift = 30

// CalculateBackoff returns the wait before retry number attempt: the base
// delay doubled per attempt, capped at MaxBackoff, with ±25% jitter.
// Attempts at or below zero wait nothing.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	shift := uint(min(attempt, maxShift))
	backoff := MaxBackoff
	if baseDelay <= MaxBackoff>>shift {
		backoff = baseDelay << shift
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}
