// Package store provides SQLite-backed persistence for tasks, dependency
// edges, and notes. It owns the schema and exposes a transactional row-level
// API; all domain rules live in the engine package on top of it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Status enumerates the task lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// QueueRelevant reports whether tasks in this status are eligible for
// execution-queue membership. Only active work (pending or in_progress)
// can hold a queue position.
func (s Status) QueueRelevant() bool {
	return s == StatusPending || s == StatusInProgress
}

// queueRelevantFilter is the SQL fragment selecting queued, active tasks.
// Every queue-ordering query and aggregate uses this same filter.
const queueRelevantFilter = "queue > 0 AND status IN ('pending', 'in_progress')"

// Task is a row in the tasks table. TaskSize, PriorityClass, and ParentID
// are genuinely nullable; everything else is always present.
type Task struct {
	ID            int64
	Title         string
	Description   string
	Status        Status
	Queue         int
	TaskSize      *int
	PriorityClass *string
	ParentID      *int64
	Topic         string
	WorkCompleted string
	WorkRemaining string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskSummary is the minimal task projection used when resolving
// dependency edges.
type TaskSummary struct {
	ID     int64
	Title  string
	Status Status
}

// Dependency is a row in the dependencies table: TaskID depends on
// DependsOnID being completed first.
type Dependency struct {
	ID          int64
	TaskID      int64
	DependsOnID int64
	CreatedAt   time.Time
}

// Note is a row in the notes table. TaskID is nil for project-level notes.
type Note struct {
	ID        int64
	TaskID    *int64
	Content   string
	Category  string
	CreatedAt time.Time
}

// Store wraps a SQLite database holding tracker state. The caller owns the
// lifecycle: construct with Open, release with Close. Multi-project use is
// one Store per database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at dbPath, enables WAL mode
// and a busy timeout, and creates the schema tables if they do not exist.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// Limit to one connection. SQLite only supports a single writer; using
	// one connection avoids SQLITE_BUSY contention between pooled connections
	// that each need their own PRAGMA setup. WAL mode still benefits external
	// readers and provides crash-safe writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=15000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, path: dbPath}
	if err := s.stampNewDatabase(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Begin starts a transaction. Callers must Commit or Rollback the
// returned Tx.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a single transaction over tracker state. All row-level operations
// live here so multi-step domain operations commit or roll back as a unit.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back after a commit is a no-op
// error and safe to ignore in a defer.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// timestampFormats lists the formats SQLite drivers may produce for
// CURRENT_TIMESTAMP. modernc.org/sqlite typically returns RFC 3339
// (with "T" separator and "Z" suffix), while canonical SQLite returns
// the space-separated DateTime format.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
}

// parseTimestamp attempts to parse a SQLite timestamp string using known formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// now returns the current UTC time in the text form written to timestamp
// columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
