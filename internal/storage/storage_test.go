// ABOUTME: Tests for the in-memory checkpointer and thread summaries
// ABOUTME: Verifies snapshot isolation, listing order and run statistics
package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/finrouter/internal/models"
)

func stateWith(t *testing.T, threadID string, texts ...string) *models.ConversationState {
	t.Helper()
	state := models.NewConversationState(threadID)
	for _, text := range texts {
		msg, err := models.NewUserMessage(text)
		if err != nil {
			t.Fatalf("NewUserMessage() error = %v", err)
		}
		if err := state.Apply(models.StateUpdate{Messages: []models.Message{*msg}}); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}
	return state
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	store := NewMemoryStore()
	state, err := store.Load(context.Background(), "thread_missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %+v, want nil for a missing thread", state)
	}
}

func TestMemoryStore_SaveLoadIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	state := stateWith(t, "thread_1", "what is a roth ira")
	state.LastHandler = models.HandlerEducation

	if err := store.Save(ctx, "thread_1", state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	state.Messages[0].Content = "changed"

	loaded, err := store.Load(ctx, "thread_1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Messages[0].Content != "what is a roth ira" {
		t.Errorf("stored message = %q, want original", loaded.Messages[0].Content)
	}
	if loaded.LastHandler != models.HandlerEducation {
		t.Errorf("LastHandler = %q, want education", loaded.LastHandler)
	}

	if err := store.Save(ctx, "thread_1", nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestMemoryStore_ListThreads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"thread_a", "thread_b", "thread_c"} {
		state := stateWith(t, id, "question for "+id)
		state.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(ctx, id, state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	all, err := store.ListThreads(ctx, 0)
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(all) != 3 || all[0].ThreadID != "thread_c" || all[2].ThreadID != "thread_a" {
		t.Errorf("ListThreads() order = %+v", all)
	}

	limited, _ := store.ListThreads(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("ListThreads(2) returned %d threads", len(limited))
	}
}

func TestMemoryStore_RoutingStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.RecordRun(ctx, models.RunRecord{Route: models.RouteDirect, Handlers: []models.HandlerID{models.HandlerMarket}})
	_ = store.RecordRun(ctx, models.RunRecord{Route: models.RouteNeedsPlanner, Handlers: []models.HandlerID{models.HandlerNews, models.HandlerMarket}})

	stats, err := store.RoutingStats(ctx)
	if err != nil {
		t.Fatalf("RoutingStats() error = %v", err)
	}
	if stats.TotalRequests != 2 || stats.FastPath != 1 || stats.MultiHandler != 1 {
		t.Errorf("RoutingStats() = %+v", stats)
	}
	if stats.HandlerCounts[models.HandlerMarket] != 2 {
		t.Errorf("market count = %d, want 2", stats.HandlerCounts[models.HandlerMarket])
	}
}

func TestSummarize(t *testing.T) {
	state := stateWith(t, "thread_1", "I want to save for a house in five years, how much per month?", "and a car")
	state.LastHandler = models.HandlerGoalPlanning

	s := Summarize(state)
	if s.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", s.MessageCount)
	}
	if s.LastHandler != models.HandlerGoalPlanning {
		t.Errorf("LastHandler = %q", s.LastHandler)
	}
	if s.Preview != "I want to save for a house in five years, how much per month..." {
		t.Errorf("Preview = %q", s.Preview)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		text string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"truncate me please", 8, "truncate..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := Preview(tt.text, tt.max); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
		}
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-test")
	if got := DataDir(); got != filepath.Join("/tmp/xdg-test", "finrouter") {
		t.Errorf("DataDir() = %q", got)
	}
	if got := filepath.Base(DefaultDBPath()); got != "finrouter.db" {
		t.Errorf("DefaultDBPath() base = %q", got)
	}
}
