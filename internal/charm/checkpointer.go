// ABOUTME: Thread checkpointer on top of a key-value store, normally the charm client
// ABOUTME: Threads are JSON snapshots under thread:, run records under run:
package charm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/storage"
)

// KV is the subset of the charm client the checkpointer needs
type KV interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
}

// Checkpointer stores conversation threads in a KV store
type Checkpointer struct {
	kv KV
}

var (
	_ storage.Checkpointer = (*Checkpointer)(nil)
	_ storage.ThreadLister = (*Checkpointer)(nil)
	_ storage.RunRecorder  = (*Checkpointer)(nil)
)

// NewCheckpointer wraps a KV store
func NewCheckpointer(kv KV) *Checkpointer {
	return &Checkpointer{kv: kv}
}

// Load implements storage.Checkpointer
func (c *Checkpointer) Load(ctx context.Context, threadID string) (*models.ConversationState, error) {
	data, err := c.kv.Get(ThreadKey(threadID))
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	if data == nil {
		return nil, nil
	}

	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", threadID, err)
	}
	return &state, nil
}

// Save implements storage.Checkpointer
func (c *Checkpointer) Save(ctx context.Context, threadID string, state *models.ConversationState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil state for thread %s", threadID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", threadID, err)
	}
	return c.kv.Set(ThreadKey(threadID), data)
}

// ListThreads implements storage.ThreadLister
func (c *Checkpointer) ListThreads(ctx context.Context, limit int) ([]models.ThreadSummary, error) {
	keys, err := c.kv.ListKeys(ThreadPrefix)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ThreadSummary, 0, len(keys))
	for _, key := range keys {
		state, err := c.Load(ctx, strings.TrimPrefix(key, ThreadPrefix))
		if err != nil {
			return nil, err
		}
		if state != nil {
			summaries = append(summaries, storage.Summarize(state))
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteThread removes a stored thread
func (c *Checkpointer) DeleteThread(ctx context.Context, threadID string) error {
	return c.kv.Delete(ThreadKey(threadID))
}

// RecordRun implements storage.RunRecorder
func (c *Checkpointer) RecordRun(ctx context.Context, rec models.RunRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	key := fmt.Sprintf("%s%s:%s", RunPrefix, rec.At.Format("20060102T150405.000000000"), uuid.New().String()[:8])
	return c.kv.Set(key, data)
}

// RoutingStats implements storage.RunRecorder
func (c *Checkpointer) RoutingStats(ctx context.Context) (models.RoutingStats, error) {
	stats := models.NewRoutingStats()
	keys, err := c.kv.ListKeys(RunPrefix)
	if err != nil {
		return stats, err
	}
	for _, key := range keys {
		data, err := c.kv.Get(key)
		if err != nil {
			return stats, err
		}
		if data == nil {
			continue
		}
		var rec models.RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		stats.Add(rec)
	}
	return stats, nil
}
