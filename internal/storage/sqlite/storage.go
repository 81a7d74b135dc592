// ABOUTME: Unified SQLite Store that wraps the thread and run stores
// ABOUTME: Implements the storage checkpointer, lister and run recorder contracts
package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/storage"
)

// Store persists conversation threads and routing history in SQLite
type Store struct {
	db      *DB
	threads *ThreadStore
	runs    *RunStore
	mu      sync.Mutex
}

var (
	_ storage.Checkpointer = (*Store)(nil)
	_ storage.ThreadLister = (*Store)(nil)
	_ storage.RunRecorder  = (*Store)(nil)
)

// NewStore opens the store at the default path
func NewStore() (*Store, error) {
	return NewStoreWithPath(DefaultDBPath())
}

// NewStoreWithPath opens the store at a custom database path
func NewStoreWithPath(dbPath string) (*Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db), nil
}

// NewStoreInMemory creates an in-memory store (for testing)
func NewStoreInMemory() (*Store, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *DB) *Store {
	return &Store{
		db:      db,
		threads: NewThreadStore(db),
		runs:    NewRunStore(db),
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database
func (s *Store) DB() *DB {
	return s.db
}

// Load implements storage.Checkpointer
func (s *Store) Load(ctx context.Context, threadID string) (*models.ConversationState, error) {
	state, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	return state, nil
}

// Save implements storage.Checkpointer
func (s *Store) Save(ctx context.Context, threadID string, state *models.ConversationState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil state for thread %s", threadID)
	}
	if state.ThreadID != threadID {
		return fmt.Errorf("state belongs to thread %q, not %q", state.ThreadID, threadID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads.Save(ctx, state)
}

// ListThreads implements storage.ThreadLister
func (s *Store) ListThreads(ctx context.Context, limit int) ([]models.ThreadSummary, error) {
	return s.threads.List(ctx, limit)
}

// Messages returns the stored log of a thread
func (s *Store) Messages(ctx context.Context, threadID string) ([]models.Message, error) {
	return s.threads.Messages(ctx, threadID)
}

// DeleteThread removes a thread with its messages
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads.Delete(ctx, threadID)
}

// RecordRun implements storage.RunRecorder
func (s *Store) RecordRun(ctx context.Context, rec models.RunRecord) error {
	return s.runs.Record(ctx, rec)
}

// RoutingStats implements storage.RunRecorder
func (s *Store) RoutingStats(ctx context.Context) (models.RoutingStats, error) {
	return s.runs.Stats(ctx)
}

// RecentRuns returns the latest runs of a thread, or of every thread when threadID is ""
func (s *Store) RecentRuns(ctx context.Context, threadID string, limit int) ([]models.RunRecord, error) {
	return s.runs.Recent(ctx, threadID, limit)
}
