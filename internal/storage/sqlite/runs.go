// ABOUTME: Run record operations for SQLite
// ABOUTME: Appends one row per request cycle and folds them into routing statistics
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/finrouter/internal/models"
)

// RunStore handles run record persistence
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Record appends a run
func (s *RunStore) Record(ctx context.Context, rec models.RunRecord) error {
	handlersJSON, err := json.Marshal(rec.Handlers)
	if err != nil {
		return err
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (thread_id, route, mode, handlers, degraded, failed, phase, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ThreadID, string(rec.Route), string(rec.Mode), string(handlersJSON),
		boolToInt(rec.Degraded), boolToInt(rec.Failed), string(rec.Phase), rec.Duration.Milliseconds(), at)
	return err
}

// Recent returns the latest runs, newest first. A thread id of "" means all threads.
func (s *RunStore) Recent(ctx context.Context, threadID string, limit int) ([]models.RunRecord, error) {
	query := `
		SELECT thread_id, route, mode, handlers, degraded, failed, phase, duration_ms, created_at
		FROM runs
	`
	args := []interface{}{}
	if threadID != "" {
		query += " WHERE thread_id = ?"
		args = append(args, threadID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Stats folds every recorded run
func (s *RunStore) Stats(ctx context.Context) (models.RoutingStats, error) {
	stats := models.NewRoutingStats()
	runs, err := s.query(ctx, `
		SELECT thread_id, route, mode, handlers, degraded, failed, phase, duration_ms, created_at
		FROM runs
		ORDER BY id ASC
	`)
	if err != nil {
		return stats, err
	}
	for _, rec := range runs {
		stats.Add(rec)
	}
	return stats, nil
}

func (s *RunStore) query(ctx context.Context, query string, args ...interface{}) ([]models.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RunRecord
	for rows.Next() {
		var (
			rec          models.RunRecord
			route        string
			mode         sql.NullString
			handlersJSON sql.NullString
			degraded     int
			failed       int
			phase        sql.NullString
			durationMS   int64
		)
		err := rows.Scan(&rec.ThreadID, &route, &mode, &handlersJSON, &degraded, &failed, &phase, &durationMS, &rec.At)
		if err != nil {
			return nil, err
		}
		rec.Route = models.RouteKind(route)
		rec.Mode = models.ExecutionMode(mode.String)
		rec.Phase = models.Phase(phase.String)
		rec.Degraded = degraded != 0
		rec.Failed = failed != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		if handlersJSON.Valid && handlersJSON.String != "" {
			if err := json.Unmarshal([]byte(handlersJSON.String), &rec.Handlers); err != nil {
				rec.Handlers = []models.HandlerID{}
			}
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
