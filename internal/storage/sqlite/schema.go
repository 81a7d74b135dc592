// ABOUTME: SQLite database schema for thread state and routing history
// ABOUTME: Creates all tables and indexes for local storage
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Threads table (one checkpoint per conversation thread)
CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    message_count INTEGER DEFAULT 0,
    last_handler TEXT,
    preview TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Messages table (append-only conversation log, mirrored from the checkpoint)
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL,
    handler TEXT,
    content TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Runs table (one row per request cycle)
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    thread_id TEXT NOT NULL,
    route TEXT NOT NULL,
    mode TEXT,
    handlers TEXT,
    degraded INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    phase TEXT,
    duration_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_threads_updated ON threads(updated_at);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, seq);
CREATE INDEX IF NOT EXISTS idx_runs_thread ON runs(thread_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
