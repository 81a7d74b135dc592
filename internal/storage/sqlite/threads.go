// ABOUTME: Thread checkpoint operations for SQLite
// ABOUTME: Stores the full state as JSON and mirrors new messages into the messages table
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harper/finrouter/internal/models"
	"github.com/harper/finrouter/internal/storage"
)

// ThreadStore handles thread persistence
type ThreadStore struct {
	db *DB
}

// NewThreadStore creates a new ThreadStore
func NewThreadStore(db *DB) *ThreadStore {
	return &ThreadStore{db: db}
}

// Save upserts the checkpoint and appends messages not yet mirrored
func (s *ThreadStore) Save(ctx context.Context, state *models.ConversationState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", state.ThreadID, err)
	}
	summary := storage.Summarize(state)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO threads (id, state, message_count, last_handler, preview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			message_count = excluded.message_count,
			last_handler = excluded.last_handler,
			preview = excluded.preview,
			updated_at = excluded.updated_at
	`, state.ThreadID, string(stateJSON), summary.MessageCount, string(summary.LastHandler),
		summary.Preview, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save thread %s: %w", state.ThreadID, err)
	}

	// The log is append-only, so existing ids are never rewritten
	for i, m := range state.Messages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, thread_id, seq, role, handler, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, m.ID, state.ThreadID, i, string(m.Role), string(m.Handler), m.Content, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns the checkpoint of a thread, or nil when it does not exist
func (s *ThreadStore) Get(ctx context.Context, threadID string) (*models.ConversationState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM threads WHERE id = ?", threadID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", threadID, err)
	}
	return &state, nil
}

// List returns thread summaries, most recently updated first
func (s *ThreadStore) List(ctx context.Context, limit int) ([]models.ThreadSummary, error) {
	query := `
		SELECT id, message_count, last_handler, preview, updated_at
		FROM threads
		ORDER BY updated_at DESC, id ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var summaries []models.ThreadSummary
	for rows.Next() {
		var (
			summary     models.ThreadSummary
			lastHandler sql.NullString
			preview     sql.NullString
		)
		if err := rows.Scan(&summary.ThreadID, &summary.MessageCount, &lastHandler, &preview, &summary.UpdatedAt); err != nil {
			return nil, err
		}
		summary.LastHandler = models.HandlerID(lastHandler.String)
		summary.Preview = preview.String
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// Messages returns the mirrored log of a thread in order
func (s *ThreadStore) Messages(ctx context.Context, threadID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, handler, content, created_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY seq ASC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var messages []models.Message
	for rows.Next() {
		var (
			m       models.Message
			role    string
			handler sql.NullString
		)
		if err := rows.Scan(&m.ID, &role, &handler, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		m.Handler = models.HandlerID(handler.String)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// Delete removes a thread and its messages
func (s *ThreadStore) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE id = ?", threadID)
	return err
}
