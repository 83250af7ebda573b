package engine

import (
	"context"
	"fmt"

	"github.com/noctivagous/todotracker/internal/store"
	"github.com/noctivagous/todotracker/internal/telemetry"
)

// AddToQueue appends a task to the end of the execution queue, assigning
// position max+1. Already-queued tasks are returned unchanged. A task whose
// status is not queue-relevant is never enqueued; a stale queue value on
// such a task is cleared and the remainder renumbered.
func (e *Engine) AddToQueue(ctx context.Context, id int64) (*store.Task, error) {
	var (
		result   *store.Task
		enqueued bool
	)
	err := e.withTx(ctx, func(tx *store.Tx) error {
		task, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		if !task.Status.QueueRelevant() {
			if task.Queue != 0 {
				if err := tx.SetQueue(ctx, id, 0); err != nil {
					return err
				}
				if _, err := normalize(ctx, tx); err != nil {
					return err
				}
			}
			result, err = tx.Task(ctx, id)
			return err
		}
		if task.Queue > 0 {
			result = task
			return nil
		}
		max, err := tx.MaxQueue(ctx)
		if err != nil {
			return err
		}
		if err := tx.SetQueue(ctx, id, max+1); err != nil {
			return err
		}
		enqueued = true
		result, err = tx.Task(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if enqueued {
		e.record(telemetry.KindQueueChanged, id, map[string]any{"queue": result.Queue})
	}
	return result, nil
}

// RemoveFromQueue clears a task's queue position and renumbers the
// remaining queue. Removing a non-queued task is a no-op.
func (e *Engine) RemoveFromQueue(ctx context.Context, id int64) (*store.Task, error) {
	var (
		result  *store.Task
		removed bool
	)
	err := e.withTx(ctx, func(tx *store.Tx) error {
		task, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		if task.Queue == 0 {
			result = task
			return nil
		}
		if err := tx.SetQueue(ctx, id, 0); err != nil {
			return err
		}
		if _, err := normalize(ctx, tx); err != nil {
			return err
		}
		removed = true
		result, err = tx.Task(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if removed {
		e.record(telemetry.KindQueueChanged, id, map[string]any{"queue": 0})
	}
	return result, nil
}

// MoveUp swaps a queued task with the one immediately ahead of it. Moving
// the task at position 1, or a non-queued task, is a no-op. If the expected
// neighbor slot is empty the queue is renumbered instead of failing.
func (e *Engine) MoveUp(ctx context.Context, id int64) (*store.Task, error) {
	return e.move(ctx, id, -1)
}

// MoveDown swaps a queued task with the one immediately behind it. Moving
// the last task, or a non-queued task, is a no-op. If the expected neighbor
// slot is empty the queue is renumbered instead of failing.
func (e *Engine) MoveDown(ctx context.Context, id int64) (*store.Task, error) {
	return e.move(ctx, id, +1)
}

// move implements the shared up/down swap. delta is -1 for up, +1 for down.
func (e *Engine) move(ctx context.Context, id int64, delta int) (*store.Task, error) {
	var (
		result *store.Task
		moved  bool
	)
	err := e.withTx(ctx, func(tx *store.Tx) error {
		task, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		// Boundary no-ops: not queued, or already at position 1 moving up.
		if task.Queue == 0 || (delta < 0 && task.Queue <= 1) {
			result = task
			return nil
		}
		// Defensive path: a status-irrelevant task should never hold a
		// queue slot. Clear and repair instead of swapping.
		if !task.Status.QueueRelevant() {
			if err := tx.SetQueue(ctx, id, 0); err != nil {
				return err
			}
			if _, err := normalize(ctx, tx); err != nil {
				return err
			}
			result, err = tx.Task(ctx, id)
			return err
		}

		neighbor, err := tx.TaskAtQueue(ctx, task.Queue+delta)
		if err != nil {
			return err
		}
		if neighbor == nil {
			// At the bottom boundary, or the queue has a gap from an
			// external inconsistency. Renumbering handles both.
			if _, err := normalize(ctx, tx); err != nil {
				return err
			}
			result, err = tx.Task(ctx, id)
			return err
		}

		if err := tx.SetQueue(ctx, neighbor.ID, task.Queue); err != nil {
			return err
		}
		if err := tx.SetQueue(ctx, id, task.Queue+delta); err != nil {
			return err
		}
		moved = true
		result, err = tx.Task(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if moved {
		e.record(telemetry.KindQueueChanged, id, map[string]any{"queue": result.Queue})
	}
	return result, nil
}

// Normalize renumbers the queue so status-relevant queued tasks occupy a
// contiguous 1..N range. It is idempotent and safe to call at any time as
// a repair operation.
func (e *Engine) Normalize(ctx context.Context) error {
	var changed bool
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		changed, err = normalize(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		e.record(telemetry.KindQueueNormalized, 0, nil)
	}
	return nil
}

// normalize reassigns contiguous positions 1..N in (queue, id) order,
// touching only rows whose value is wrong so correct rows keep their
// update timestamps. Reports whether anything changed.
func normalize(ctx context.Context, tx *store.Tx) (bool, error) {
	queued, err := tx.Queued(ctx, store.QueuedFilter{})
	if err != nil {
		return false, err
	}
	changed := false
	for i, task := range queued {
		expected := i + 1
		if task.Queue != expected {
			if err := tx.SetQueue(ctx, task.ID, expected); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// Queued returns the execution queue in order. Size bounds are inclusive
// and exclude tasks without a task_size; an inverted bound pair is a
// caller error.
func (e *Engine) Queued(ctx context.Context, f store.QueuedFilter) ([]store.Task, error) {
	if f.MinSize != nil {
		if err := validateSize(f.MinSize); err != nil {
			return nil, err
		}
	}
	if f.MaxSize != nil {
		if err := validateSize(f.MaxSize); err != nil {
			return nil, err
		}
	}
	if f.MinSize != nil && f.MaxSize != nil && *f.MinSize > *f.MaxSize {
		return nil, fmt.Errorf("%w: min_size %d > max_size %d", ErrInvalidArgument, *f.MinSize, *f.MaxSize)
	}
	var tasks []store.Task
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		tasks, err = tx.Queued(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxQueue returns the current maximum queue position, or 0 when the
// queue is empty.
func (e *Engine) MaxQueue(ctx context.Context) (int, error) {
	var max int
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		max, err = tx.MaxQueue(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return max, nil
}
