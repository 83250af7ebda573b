package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/noctivagous/todotracker/internal/store"
)

// queueIDs returns the task ids of the current queue in order, asserting
// positions are exactly 1..N.
func queueIDs(t *testing.T, e *Engine) []int64 {
	t.Helper()
	queued, err := e.Queued(context.Background(), store.QueuedFilter{})
	if err != nil {
		t.Fatalf("Queued: %v", err)
	}
	ids := make([]int64, 0, len(queued))
	for i, task := range queued {
		if task.Queue != i+1 {
			t.Errorf("queue position %d held by task %d with value %d", i+1, task.ID, task.Queue)
		}
		ids = append(ids, task.ID)
	}
	return ids
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddToQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("appends at max plus one", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		a := mustCreate(t, e, "A", store.StatusPending)
		b := mustCreate(t, e, "B", store.StatusInProgress)

		qa, err := e.AddToQueue(ctx, a.ID)
		if err != nil {
			t.Fatalf("AddToQueue(A): %v", err)
		}
		if qa.Queue != 1 {
			t.Errorf("A.queue = %d, want 1", qa.Queue)
		}
		qb, err := e.AddToQueue(ctx, b.ID)
		if err != nil {
			t.Fatalf("AddToQueue(B): %v", err)
		}
		if qb.Queue != 2 {
			t.Errorf("B.queue = %d, want 2", qb.Queue)
		}
	})

	t.Run("re-enqueue is a no-op", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		a := mustCreate(t, e, "A", store.StatusPending)
		if _, err := e.AddToQueue(ctx, a.ID); err != nil {
			t.Fatalf("AddToQueue: %v", err)
		}
		again, err := e.AddToQueue(ctx, a.ID)
		if err != nil {
			t.Fatalf("second AddToQueue: %v", err)
		}
		if again.Queue != 1 {
			t.Errorf("queue = %d, want 1 (idempotent)", again.Queue)
		}
	})

	t.Run("inactive task is not enqueued", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		done := mustCreate(t, e, "done", store.StatusCompleted)
		task, err := e.AddToQueue(ctx, done.ID)
		if err != nil {
			t.Fatalf("AddToQueue: %v", err)
		}
		if task.Queue != 0 {
			t.Errorf("queue = %d, want 0", task.Queue)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		if _, err := e.AddToQueue(ctx, 12); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestRemoveFromQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := testEngine(t)

	a := mustCreate(t, e, "A", store.StatusPending)
	b := mustCreate(t, e, "B", store.StatusPending)
	c := mustCreate(t, e, "C", store.StatusPending)
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		if _, err := e.AddToQueue(ctx, id); err != nil {
			t.Fatalf("AddToQueue(%d): %v", id, err)
		}
	}

	removed, err := e.RemoveFromQueue(ctx, b.ID)
	if err != nil {
		t.Fatalf("RemoveFromQueue: %v", err)
	}
	if removed.Queue != 0 {
		t.Errorf("B.queue = %d, want 0", removed.Queue)
	}
	if got := queueIDs(t, e); !sameIDs(got, []int64{a.ID, c.ID}) {
		t.Errorf("queue = %v, want [A C]", got)
	}

	// Removing a non-queued task is a no-op.
	again, err := e.RemoveFromQueue(ctx, b.ID)
	if err != nil {
		t.Fatalf("second RemoveFromQueue: %v", err)
	}
	if again.Queue != 0 {
		t.Errorf("queue = %d, want 0", again.Queue)
	}
}

func TestMoveUpDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// setup queues A, B, C at positions 1, 2, 3.
	setup := func(t *testing.T) (*Engine, []int64) {
		t.Helper()
		e := testEngine(t)
		var ids []int64
		for _, title := range []string{"A", "B", "C"} {
			task := mustCreate(t, e, title, store.StatusPending)
			if _, err := e.AddToQueue(ctx, task.ID); err != nil {
				t.Fatalf("AddToQueue(%s): %v", title, err)
			}
			ids = append(ids, task.ID)
		}
		return e, ids
	}

	t.Run("move up swaps with previous", func(t *testing.T) {
		t.Parallel()
		e, ids := setup(t)
		moved, err := e.MoveUp(ctx, ids[2])
		if err != nil {
			t.Fatalf("MoveUp(C): %v", err)
		}
		if moved.Queue != 2 {
			t.Errorf("C.queue = %d, want 2", moved.Queue)
		}
		if got := queueIDs(t, e); !sameIDs(got, []int64{ids[0], ids[2], ids[1]}) {
			t.Errorf("queue = %v, want [A C B]", got)
		}
	})

	t.Run("move down swaps with next", func(t *testing.T) {
		t.Parallel()
		e, ids := setup(t)
		moved, err := e.MoveDown(ctx, ids[0])
		if err != nil {
			t.Fatalf("MoveDown(A): %v", err)
		}
		if moved.Queue != 2 {
			t.Errorf("A.queue = %d, want 2", moved.Queue)
		}
		if got := queueIDs(t, e); !sameIDs(got, []int64{ids[1], ids[0], ids[2]}) {
			t.Errorf("queue = %v, want [B A C]", got)
		}
	})

	t.Run("move up at position one is a no-op", func(t *testing.T) {
		t.Parallel()
		e, ids := setup(t)
		moved, err := e.MoveUp(ctx, ids[0])
		if err != nil {
			t.Fatalf("MoveUp(A): %v", err)
		}
		if moved.Queue != 1 {
			t.Errorf("A.queue = %d, want 1", moved.Queue)
		}
		if got := queueIDs(t, e); !sameIDs(got, ids) {
			t.Errorf("queue = %v, want unchanged %v", got, ids)
		}
	})

	t.Run("move down at last position is a no-op", func(t *testing.T) {
		t.Parallel()
		e, ids := setup(t)
		moved, err := e.MoveDown(ctx, ids[2])
		if err != nil {
			t.Fatalf("MoveDown(C): %v", err)
		}
		if moved.Queue != 3 {
			t.Errorf("C.queue = %d, want 3", moved.Queue)
		}
		if got := queueIDs(t, e); !sameIDs(got, ids) {
			t.Errorf("queue = %v, want unchanged %v", got, ids)
		}
	})

	t.Run("unqueued task is a no-op", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		task := mustCreate(t, e, "loose", store.StatusPending)
		moved, err := e.MoveUp(ctx, task.ID)
		if err != nil {
			t.Fatalf("MoveUp: %v", err)
		}
		if moved.Queue != 0 {
			t.Errorf("queue = %d, want 0", moved.Queue)
		}
	})

	t.Run("gap self-heals through normalize", func(t *testing.T) {
		t.Parallel()
		e, ids := setup(t)
		// Complete B externally so position 2 empties without renumbering:
		// UpdateTask would renumber, so instead simulate external damage by
		// writing the row directly.
		tx, err := e.store.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := tx.SetQueue(ctx, ids[1], 0); err != nil {
			t.Fatalf("SetQueue: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}

		// C sits at 3 with slot 2 empty; MoveUp repairs instead of failing.
		moved, err := e.MoveUp(ctx, ids[2])
		if err != nil {
			t.Fatalf("MoveUp(C): %v", err)
		}
		if moved.Queue != 2 {
			t.Errorf("C.queue = %d, want 2 after self-heal", moved.Queue)
		}
		if got := queueIDs(t, e); !sameIDs(got, []int64{ids[0], ids[2]}) {
			t.Errorf("queue = %v, want [A C]", got)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("repairs gaps and duplicates", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		var ids []int64
		for _, title := range []string{"A", "B", "C"} {
			ids = append(ids, mustCreate(t, e, title, store.StatusPending).ID)
		}
		// Damage the queue directly: positions 2, 2, 7.
		tx, err := e.store.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		for i, pos := range []int{2, 2, 7} {
			if err := tx.SetQueue(ctx, ids[i], pos); err != nil {
				t.Fatalf("SetQueue: %v", err)
			}
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}

		if err := e.Normalize(ctx); err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		// Duplicate positions break ties by id: A before B, then C.
		if got := queueIDs(t, e); !sameIDs(got, ids) {
			t.Errorf("queue = %v, want %v", got, ids)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		a := mustCreate(t, e, "A", store.StatusPending)
		if _, err := e.AddToQueue(ctx, a.ID); err != nil {
			t.Fatalf("AddToQueue: %v", err)
		}
		if err := e.Normalize(ctx); err != nil {
			t.Fatalf("first Normalize: %v", err)
		}
		before, err := e.GetTask(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if err := e.Normalize(ctx); err != nil {
			t.Fatalf("second Normalize: %v", err)
		}
		after, err := e.GetTask(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if !before.UpdatedAt.Equal(after.UpdatedAt) {
			t.Error("second Normalize touched an already-correct row")
		}
	})
}

func TestQueued(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("size bounds exclude null sizes", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		sized, err := e.CreateTask(ctx, CreateTaskParams{Title: "sized", TaskSize: ptr(4)})
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		unsized := mustCreate(t, e, "unsized", store.StatusPending)
		for _, id := range []int64{sized.ID, unsized.ID} {
			if _, err := e.AddToQueue(ctx, id); err != nil {
				t.Fatalf("AddToQueue(%d): %v", id, err)
			}
		}

		got, err := e.Queued(ctx, store.QueuedFilter{MinSize: ptr(3)})
		if err != nil {
			t.Fatalf("Queued: %v", err)
		}
		if len(got) != 1 || got[0].ID != sized.ID {
			t.Errorf("Queued(min_size=3) = %+v, want only the sized task", got)
		}
	})

	t.Run("inverted bounds rejected", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		_, err := e.Queued(ctx, store.QueuedFilter{MinSize: ptr(4), MaxSize: ptr(2)})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()
		e := testEngine(t)
		for _, title := range []string{"A", "B", "C"} {
			task := mustCreate(t, e, title, store.StatusPending)
			if _, err := e.AddToQueue(ctx, task.ID); err != nil {
				t.Fatalf("AddToQueue(%s): %v", title, err)
			}
		}
		got, err := e.Queued(ctx, store.QueuedFilter{Limit: 2})
		if err != nil {
			t.Fatalf("Queued: %v", err)
		}
		if len(got) != 2 || got[0].Queue != 1 || got[1].Queue != 2 {
			t.Errorf("Queued(limit=2) = %+v, want first two positions", got)
		}
	})
}

func TestMaxQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := testEngine(t)

	max, err := e.MaxQueue(ctx)
	if err != nil {
		t.Fatalf("MaxQueue: %v", err)
	}
	if max != 0 {
		t.Errorf("empty queue max = %d, want 0", max)
	}

	for _, title := range []string{"A", "B"} {
		task := mustCreate(t, e, title, store.StatusPending)
		if _, err := e.AddToQueue(ctx, task.ID); err != nil {
			t.Fatalf("AddToQueue(%s): %v", title, err)
		}
	}
	max, err = e.MaxQueue(ctx)
	if err != nil {
		t.Fatalf("MaxQueue: %v", err)
	}
	if max != 2 {
		t.Errorf("max = %d, want 2", max)
	}
}
