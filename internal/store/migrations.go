package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SchemaVersion is the schema generation this build writes and expects.
const SchemaVersion = 3

// appVersion is recorded alongside every schema_version row so a database
// can report which release last touched it.
const appVersion = "1.3.0"

// migrations maps a source schema version to the function that upgrades the
// database to the next version. Each migration runs in its own transaction.
var migrations = map[int]func(context.Context, *sql.Tx) error{
	1: migrate1to2,
	2: migrate2to3,
}

// migrationNotes describes each upgrade for the schema_version audit row.
var migrationNotes = map[int]string{
	1: "add execution queue, task_size, and priority_class to tasks",
	2: "add work_completed/work_remaining progress fields and note categories",
}

// Version returns the database's current schema version, or 0 if the
// database predates version tracking.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version) FROM schema_version").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// NeedsMigration reports whether the database schema is older than this
// build expects, along with the current and target versions.
func (s *Store) NeedsMigration(ctx context.Context) (needed bool, current, target int, err error) {
	current, err = s.Version(ctx)
	if err != nil {
		return false, 0, 0, err
	}
	return current < SchemaVersion, current, SchemaVersion, nil
}

// Migrate upgrades the database schema to SchemaVersion, applying each
// pending migration in order inside its own transaction. The database file
// is backed up before the first migration runs. It returns the versions
// that were applied (empty when already current).
func (s *Store) Migrate(ctx context.Context) ([]int, error) {
	current, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}
	if current >= SchemaVersion {
		return nil, nil
	}

	if err := s.backup(current); err != nil {
		return nil, err
	}

	var applied []int
	for v := current; v < SchemaVersion; v++ {
		fn, ok := migrations[v]
		if !ok {
			return applied, fmt.Errorf("store: no migration from schema v%d", v)
		}
		if err := s.runMigration(ctx, v, fn); err != nil {
			return applied, err
		}
		applied = append(applied, v+1)
	}
	return applied, nil
}

// runMigration executes one migration step and records the resulting
// version, all inside a single transaction.
func (s *Store) runMigration(ctx context.Context, from int, fn func(context.Context, *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin migration v%d: %w", from+1, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(ctx, tx); err != nil {
		return fmt.Errorf("store: migrate v%d to v%d: %w", from, from+1, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_version (version, app_version, description, applied_at)
		VALUES (?, ?, ?, ?)`,
		from+1, appVersion, migrationNotes[from], now()); err != nil {
		return fmt.Errorf("store: record schema v%d: %w", from+1, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migration v%d: %w", from+1, err)
	}
	return nil
}

// backup copies the database file next to itself before a migration. An
// in-memory database has nothing to back up.
func (s *Store) backup(fromVersion int) error {
	if s.path == "" || s.path == ":memory:" {
		return nil
	}
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: open database for backup: %w", err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.bak-v%d", s.path, fromVersion)
	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("store: create backup %s: %w", backupPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("store: write backup %s: %w", backupPath, err)
	}
	return nil
}

// stampNewDatabase records the current schema version on a database that
// has no version rows yet. Databases created by this build never need the
// historical migrations.
func (s *Store) stampNewDatabase(ctx context.Context) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if current != 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO schema_version (version, app_version, description, applied_at)
		VALUES (?, ?, ?, ?)`,
		SchemaVersion, appVersion, "initial setup", now()); err != nil {
		return fmt.Errorf("store: stamp schema version: %w", err)
	}
	return nil
}

// migrate1to2 introduces the execution queue and sizing metadata, and
// zeroes queue values on tasks whose status makes them ineligible.
func migrate1to2(ctx context.Context, tx *sql.Tx) error {
	cols := []string{
		"queue INTEGER NOT NULL DEFAULT 0",
		"task_size INTEGER",
		"priority_class TEXT",
	}
	for _, col := range cols {
		if err := addColumn(ctx, tx, "tasks", col); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_tasks_queue ON tasks(queue)"); err != nil {
		return fmt.Errorf("create queue index: %w", err)
	}
	// Old rows may carry queue values on finished tasks; the invariant says
	// completed/cancelled tasks always have queue = 0.
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET queue = 0 WHERE status NOT IN ('pending', 'in_progress') AND queue != 0"); err != nil {
		return fmt.Errorf("zero stale queue values: %w", err)
	}
	return nil
}

// migrate2to3 adds the progress-tracking text fields and note categories.
func migrate2to3(ctx context.Context, tx *sql.Tx) error {
	for _, col := range []string{
		"work_completed TEXT NOT NULL DEFAULT ''",
		"work_remaining TEXT NOT NULL DEFAULT ''",
	} {
		if err := addColumn(ctx, tx, "tasks", col); err != nil {
			return err
		}
	}
	return addColumn(ctx, tx, "notes", "category TEXT NOT NULL DEFAULT 'general'")
}

// addColumn runs ALTER TABLE ADD COLUMN, tolerating the column already
// existing so re-running a partially applied migration stays safe.
func addColumn(ctx context.Context, tx *sql.Tx, table, colDef string) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, colDef))
	if err != nil && !isDuplicateColumn(err) {
		return fmt.Errorf("add column %s.%s: %w", table, colDef, err)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}

// ErrSchemaAhead is returned by CheckCompatibility when the database was
// written by a newer release than this build.
var ErrSchemaAhead = errors.New("database schema is newer than this build")

// CheckCompatibility verifies the database schema is usable by this build.
func (s *Store) CheckCompatibility(ctx context.Context) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: database v%d, build v%d", ErrSchemaAhead, current, SchemaVersion)
	}
	return nil
}
