// ABOUTME: Persistence contracts for conversation threads plus an in-memory store
// ABOUTME: Resolves the XDG data directory shared by the sqlite backend
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/adrg/xdg"

	"github.com/harper/finrouter/internal/models"
)

// Checkpointer loads and saves conversation state by thread id.
// Load returns (nil, nil) when the thread does not exist yet.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (*models.ConversationState, error)
	Save(ctx context.Context, threadID string, state *models.ConversationState) error
}

// ThreadLister is implemented by checkpointers that can enumerate threads
type ThreadLister interface {
	ListThreads(ctx context.Context, limit int) ([]models.ThreadSummary, error)
}

// RunRecorder is implemented by checkpointers that keep routing history
type RunRecorder interface {
	RecordRun(ctx context.Context, rec models.RunRecord) error
	RoutingStats(ctx context.Context) (models.RoutingStats, error)
}

// DataDir returns the data directory, honoring XDG_DATA_HOME
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "finrouter")
}

// DefaultDBPath returns the default sqlite database path
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "finrouter.db")
}

// MemoryStore keeps threads in process memory. States are stored as JSON
// snapshots so callers never share pointers with the store.
type MemoryStore struct {
	mu      sync.Mutex
	threads map[string][]byte
	runs    []models.RunRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: map[string][]byte{}}
}

// Load returns a copy of the stored state
func (m *MemoryStore) Load(ctx context.Context, threadID string) (*models.ConversationState, error) {
	m.mu.Lock()
	data, ok := m.threads[threadID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", threadID, err)
	}
	return &state, nil
}

// Save stores a snapshot of the state
func (m *MemoryStore) Save(ctx context.Context, threadID string, state *models.ConversationState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil state for thread %s", threadID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", threadID, err)
	}
	m.mu.Lock()
	m.threads[threadID] = data
	m.mu.Unlock()
	return nil
}

// ListThreads returns the most recently updated threads first
func (m *MemoryStore) ListThreads(ctx context.Context, limit int) ([]models.ThreadSummary, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	summaries := make([]models.ThreadSummary, 0, len(ids))
	for _, id := range ids {
		state, err := m.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summarize(state))
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].ThreadID < summaries[j].ThreadID
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// RecordRun appends a run record
func (m *MemoryStore) RecordRun(ctx context.Context, rec models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return nil
}

// RoutingStats folds every recorded run
func (m *MemoryStore) RoutingStats(ctx context.Context) (models.RoutingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := models.NewRoutingStats()
	for _, rec := range m.runs {
		stats.Add(rec)
	}
	return stats, nil
}

// Summarize builds the listing entry of a thread
func Summarize(state *models.ConversationState) models.ThreadSummary {
	summary := models.ThreadSummary{
		ThreadID:     state.ThreadID,
		MessageCount: len(state.Messages),
		LastHandler:  state.LastHandler,
		UpdatedAt:    state.UpdatedAt,
	}
	if first, ok := firstUserMessage(state.Messages); ok {
		summary.Preview = Preview(first.Content, 60)
	}
	return summary
}

// Preview truncates text to max runes, appending "..." when cut
func Preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func firstUserMessage(messages []models.Message) (models.Message, bool) {
	for _, m := range messages {
		if m.Role == models.RoleUser {
			return m, true
		}
	}
	return models.Message{}, false
}
