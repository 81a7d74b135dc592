// ABOUTME: In-process routing metrics shared by every request cycle
// ABOUTME: Counts fast-path vs planner routing, degraded plans and handler failures
package core

import (
	"sync"

	"github.com/harper/finrouter/internal/models"
)

// RoutingMetrics is safe for concurrent use
type RoutingMetrics struct {
	mu    sync.Mutex
	stats models.RoutingStats
}

// NewRoutingMetrics creates empty metrics
func NewRoutingMetrics() *RoutingMetrics {
	return &RoutingMetrics{stats: models.NewRoutingStats()}
}

// Record folds one run into the metrics
func (m *RoutingMetrics) Record(rec models.RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Add(rec)
}

// Snapshot returns a copy of the current totals
func (m *RoutingMetrics) Snapshot() models.RoutingStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.HandlerCounts = make(map[models.HandlerID]int, len(m.stats.HandlerCounts))
	for id, n := range m.stats.HandlerCounts {
		out.HandlerCounts[id] = n
	}
	return out
}
