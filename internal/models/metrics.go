// ABOUTME: Run records and routing statistics
// ABOUTME: One RunRecord per request cycle; RoutingStats folds them into totals
package models

import "time"

// RunRecord summarizes one completed request cycle
type RunRecord struct {
	ThreadID string        `json:"thread_id"`
	Route    RouteKind     `json:"route"`
	Mode     ExecutionMode `json:"mode,omitempty"`
	Handlers []HandlerID   `json:"handlers"`
	Degraded bool          `json:"degraded,omitempty"`
	Failed   bool          `json:"failed,omitempty"`
	Phase    Phase         `json:"phase"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// RoutingStats aggregates run records
type RoutingStats struct {
	TotalRequests   int               `json:"total_requests"`
	FastPath        int               `json:"fast_path"`
	PlannerCalls    int               `json:"planner_calls"`
	Degraded        int               `json:"degraded"`
	MultiHandler    int               `json:"multi_handler"`
	HandlerFailures int               `json:"handler_failures"`
	HandlerCounts   map[HandlerID]int `json:"handler_counts"`
	TotalLatency    time.Duration     `json:"total_latency"`
}

// NewRoutingStats returns empty statistics
func NewRoutingStats() RoutingStats {
	return RoutingStats{HandlerCounts: map[HandlerID]int{}}
}

// Add folds one run into the totals
func (s *RoutingStats) Add(rec RunRecord) {
	if s.HandlerCounts == nil {
		s.HandlerCounts = map[HandlerID]int{}
	}
	s.TotalRequests++
	if rec.Route == RouteDirect {
		s.FastPath++
	} else {
		s.PlannerCalls++
	}
	if rec.Degraded {
		s.Degraded++
	}
	if len(rec.Handlers) > 1 {
		s.MultiHandler++
	}
	if rec.Failed {
		s.HandlerFailures++
	}
	for _, id := range rec.Handlers {
		s.HandlerCounts[id]++
	}
	s.TotalLatency += rec.Duration
}

// FastPathRate is the share of requests the classifier routed on its own
func (s RoutingStats) FastPathRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.FastPath) / float64(s.TotalRequests)
}

// AverageLatency is the mean cycle duration
func (s RoutingStats) AverageLatency() time.Duration {
	if s.TotalRequests == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.TotalRequests)
}

// ThreadSummary is a listing entry for a stored conversation thread
type ThreadSummary struct {
	ThreadID     string    `json:"thread_id"`
	MessageCount int       `json:"message_count"`
	LastHandler  HandlerID `json:"last_handler,omitempty"`
	Preview      string    `json:"preview,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
