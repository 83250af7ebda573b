package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// testStore creates a temporary SQLite store for testing and registers
// cleanup.
func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.project.db")
	s, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// inTx runs fn in a transaction and commits, failing the test on error.
func inTx(t *testing.T, s *Store, fn func(tx *Tx) error) {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// insertTask inserts a minimal task and returns its id.
func insertTask(t *testing.T, s *Store, title string, status Status, queue int) int64 {
	t.Helper()
	var id int64
	inTx(t, s, func(tx *Tx) error {
		var err error
		id, err = tx.InsertTask(context.Background(), &Task{
			Title:  title,
			Status: status,
			Queue:  queue,
		})
		return err
	})
	return id
}

func TestOpen(t *testing.T) {
	t.Parallel()
	s := testStore(t)

	// WAL mode is active.
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}

	// All tables exist.
	tables := map[string]bool{
		"tasks": false, "dependencies": false, "notes": false, "schema_version": false,
	}
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		if _, ok := tables[name]; ok {
			tables[name] = true
		}
	}
	for name, found := range tables {
		if !found {
			t.Errorf("table %q not created", name)
		}
	}

	// New databases are stamped at the current schema version.
	v, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("new database version = %d, want %d", v, SchemaVersion)
	}
}

func TestStatusQueueRelevant(t *testing.T) {
	t.Parallel()
	cases := map[Status]bool{
		StatusPending:    true,
		StatusInProgress: true,
		StatusCompleted:  false,
		StatusCancelled:  false,
		Status("bogus"):  false,
	}
	for status, want := range cases {
		if got := status.QueueRelevant(); got != want {
			t.Errorf("%q.QueueRelevant() = %v, want %v", status, got, want)
		}
	}
	if Status("bogus").Valid() {
		t.Error("bogus status reported valid")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	size := 3
	class := "B"
	parentID := insertTask(t, s, "parent", StatusPending, 0)

	var id int64
	inTx(t, s, func(tx *Tx) error {
		var err error
		id, err = tx.InsertTask(ctx, &Task{
			Title:         "child",
			Description:   "leaf node",
			Status:        StatusInProgress,
			Queue:         2,
			TaskSize:      &size,
			PriorityClass: &class,
			ParentID:      &parentID,
			Topic:         "storage",
		})
		return err
	})

	inTx(t, s, func(tx *Tx) error {
		got, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if got == nil {
			t.Fatal("task not found after insert")
		}
		if got.Title != "child" || got.Description != "leaf node" {
			t.Errorf("text fields = %q/%q", got.Title, got.Description)
		}
		if got.Status != StatusInProgress || got.Queue != 2 {
			t.Errorf("status/queue = %q/%d", got.Status, got.Queue)
		}
		if got.TaskSize == nil || *got.TaskSize != 3 {
			t.Errorf("task_size = %v, want 3", got.TaskSize)
		}
		if got.PriorityClass == nil || *got.PriorityClass != "B" {
			t.Errorf("priority_class = %v, want B", got.PriorityClass)
		}
		if got.ParentID == nil || *got.ParentID != parentID {
			t.Errorf("parent_id = %v, want %d", got.ParentID, parentID)
		}
		if got.CreatedAt.IsZero() || time.Since(got.CreatedAt) > time.Minute {
			t.Errorf("created_at = %v", got.CreatedAt)
		}
		return nil
	})

	// Missing rows come back nil without error.
	inTx(t, s, func(tx *Tx) error {
		got, err := tx.Task(ctx, id+1000)
		if err != nil {
			return err
		}
		if got != nil {
			t.Errorf("missing task = %+v, want nil", got)
		}
		return nil
	})
}

func TestQueuedOrderingAndFilters(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	// Queue: B at 1, A at 2, done task with stray queue value, unqueued.
	a := insertTask(t, s, "A", StatusPending, 2)
	b := insertTask(t, s, "B", StatusInProgress, 1)
	insertTask(t, s, "done", StatusCompleted, 5) // never queue-relevant
	insertTask(t, s, "loose", StatusPending, 0)

	inTx(t, s, func(tx *Tx) error {
		queued, err := tx.Queued(ctx, QueuedFilter{})
		if err != nil {
			return err
		}
		if len(queued) != 2 {
			t.Fatalf("queued = %d rows, want 2", len(queued))
		}
		if queued[0].ID != b || queued[1].ID != a {
			t.Errorf("order = [%d %d], want [B=%d A=%d]", queued[0].ID, queued[1].ID, b, a)
		}

		max, err := tx.MaxQueue(ctx)
		if err != nil {
			return err
		}
		if max != 2 {
			t.Errorf("MaxQueue = %d, want 2 (ignores completed task's stray value)", max)
		}

		at, err := tx.TaskAtQueue(ctx, 1)
		if err != nil {
			return err
		}
		if at == nil || at.ID != b {
			t.Errorf("TaskAtQueue(1) = %+v, want B", at)
		}
		missing, err := tx.TaskAtQueue(ctx, 9)
		if err != nil {
			return err
		}
		if missing != nil {
			t.Errorf("TaskAtQueue(9) = %+v, want nil", missing)
		}
		return nil
	})
}

func TestQueuedTieBreaksByID(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	first := insertTask(t, s, "first", StatusPending, 3)
	second := insertTask(t, s, "second", StatusPending, 3)

	inTx(t, s, func(tx *Tx) error {
		queued, err := tx.Queued(ctx, QueuedFilter{})
		if err != nil {
			return err
		}
		if len(queued) != 2 || queued[0].ID != first || queued[1].ID != second {
			t.Errorf("duplicate positions not tie-broken by id: %+v", queued)
		}
		return nil
	})
}

func TestDependencyCascade(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	a := insertTask(t, s, "A", StatusPending, 0)
	b := insertTask(t, s, "B", StatusPending, 0)

	inTx(t, s, func(tx *Tx) error {
		if _, err := tx.InsertDependency(ctx, a, b); err != nil {
			return err
		}
		if _, err := tx.InsertNote(ctx, &a, "remember this", "general"); err != nil {
			return err
		}
		return nil
	})

	inTx(t, s, func(tx *Tx) error {
		ok, err := tx.DeleteTask(ctx, a)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("DeleteTask reported no row")
		}
		return nil
	})

	inTx(t, s, func(tx *Tx) error {
		edges, err := tx.DependentsOf(ctx, b)
		if err != nil {
			return err
		}
		if len(edges) != 0 {
			t.Errorf("edges after cascade = %d, want 0", len(edges))
		}
		notes, err := tx.Notes(ctx, &a, "", 0)
		if err != nil {
			return err
		}
		if len(notes) != 0 {
			t.Errorf("notes after cascade = %d, want 0", len(notes))
		}
		return nil
	})
}

func TestRollbackLeavesNoTrace(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tx.InsertTask(ctx, &Task{Title: "ghost", Status: StatusPending}); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	inTx(t, s, func(tx *Tx) error {
		tasks, err := tx.Tasks(ctx, TaskFilter{})
		if err != nil {
			return err
		}
		if len(tasks) != 0 {
			t.Errorf("tasks after rollback = %d, want 0", len(tasks))
		}
		return nil
	})
}

func TestNotes(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	taskID := insertTask(t, s, "with notes", StatusPending, 0)

	inTx(t, s, func(tx *Tx) error {
		if _, err := tx.InsertNote(ctx, &taskID, "attached", "progress"); err != nil {
			return err
		}
		if _, err := tx.InsertNote(ctx, nil, "project-wide", "general"); err != nil {
			return err
		}
		return nil
	})

	inTx(t, s, func(tx *Tx) error {
		all, err := tx.Notes(ctx, nil, "", 0)
		if err != nil {
			return err
		}
		if len(all) != 2 {
			t.Fatalf("all notes = %d, want 2", len(all))
		}
		attached, err := tx.Notes(ctx, &taskID, "", 0)
		if err != nil {
			return err
		}
		if len(attached) != 1 || attached[0].Content != "attached" {
			t.Errorf("attached notes = %+v", attached)
		}
		if attached[0].TaskID == nil || *attached[0].TaskID != taskID {
			t.Errorf("note task_id = %v, want %d", attached[0].TaskID, taskID)
		}
		byCategory, err := tx.Notes(ctx, nil, "progress", 0)
		if err != nil {
			return err
		}
		if len(byCategory) != 1 {
			t.Errorf("progress notes = %d, want 1", len(byCategory))
		}
		return nil
	})
}
