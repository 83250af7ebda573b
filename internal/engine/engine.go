// Package engine implements the tracker's execution queue and dependency
// rules: the acyclic depends-on graph, the contiguous 1..N queue ordering,
// and the status lifecycle policy that couples the two. Every mutation runs
// inside one store transaction, so the database never observes a
// half-applied operation.
package engine

import (
	"context"
	"fmt"

	"github.com/noctivagous/todotracker/internal/store"
	"github.com/noctivagous/todotracker/internal/telemetry"
)

// Engine is the single choke point for task mutation. It reads fresh state
// on every call and keeps no in-memory caches, so independent processes
// sharing one database stay consistent.
type Engine struct {
	store   *store.Store
	emitter *telemetry.Emitter
}

// New creates an Engine over the given store. The emitter may be nil to
// disable the audit stream.
func New(st *store.Store, emitter *telemetry.Emitter) *Engine {
	return &Engine{store: st, emitter: emitter}
}

// withTx runs fn inside a transaction, committing on success. The deferred
// rollback is a no-op once the commit has happened.
func (e *Engine) withTx(ctx context.Context, fn func(tx *store.Tx) error) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// record emits an audit event, dropping emitter write failures: the
// mutation has already committed and must not be reported as failed.
func (e *Engine) record(kind string, taskID int64, data any) {
	_ = e.emitter.Record(kind, taskID, data)
}

// CreateTaskParams carries the caller-settable fields of a new task.
type CreateTaskParams struct {
	Title         string
	Description   string
	Status        store.Status
	Queue         int
	TaskSize      *int
	PriorityClass *string
	ParentID      *int64
	Topic         string
}

// CreateTask creates a task. Status defaults to pending. A requested queue
// position is honored only when the initial status is queue-relevant;
// otherwise the task is created unqueued.
func (e *Engine) CreateTask(ctx context.Context, p CreateTaskParams) (*store.Task, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	status := p.Status
	if status == "" {
		status = store.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, p.Status)
	}
	if err := validateSize(p.TaskSize); err != nil {
		return nil, err
	}
	if err := validateClass(p.PriorityClass); err != nil {
		return nil, err
	}

	queue := p.Queue
	if queue < 0 || !status.QueueRelevant() {
		queue = 0
	}

	var created *store.Task
	err := e.withTx(ctx, func(tx *store.Tx) error {
		if p.ParentID != nil {
			ok, err := tx.TaskExists(ctx, *p.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: parent task %d", ErrNotFound, *p.ParentID)
			}
		}
		id, err := tx.InsertTask(ctx, &store.Task{
			Title:         p.Title,
			Description:   p.Description,
			Status:        status,
			Queue:         queue,
			TaskSize:      p.TaskSize,
			PriorityClass: p.PriorityClass,
			ParentID:      p.ParentID,
			Topic:         p.Topic,
		})
		if err != nil {
			return err
		}
		created, err = tx.Task(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.record(telemetry.KindTaskCreated, created.ID, map[string]any{
		"status": created.Status,
		"queue":  created.Queue,
	})
	return created, nil
}

// GetTask returns a task by id.
func (e *Engine) GetTask(ctx context.Context, id int64) (*store.Task, error) {
	var task *store.Task
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		task, err = tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks matching the filter.
func (e *Engine) ListTasks(ctx context.Context, f store.TaskFilter) ([]store.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, f.Status)
	}
	var tasks []store.Task
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		tasks, err = tx.Tasks(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTaskParams carries a partial update; nil fields are left unchanged.
type UpdateTaskParams struct {
	Title         *string
	Description   *string
	Status        *store.Status
	Queue         *int
	TaskSize      **int
	PriorityClass **string
	ParentID      **int64
	Topic         *string
	WorkCompleted *string
	WorkRemaining *string
}

// UpdateTask applies a partial update under the status lifecycle policy:
// whenever the resulting status is not queue-relevant, the queue value is
// forced to 0 instead of honoring the caller's input, and any update that
// takes a queued task out of the queue triggers normalization of the
// remaining positions. Callers expecting a queue value to stick on a
// completed or cancelled task are silently overridden.
func (e *Engine) UpdateTask(ctx context.Context, id int64, p UpdateTaskParams) (*store.Task, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, *p.Status)
	}
	if p.TaskSize != nil {
		if err := validateSize(*p.TaskSize); err != nil {
			return nil, err
		}
	}
	if p.PriorityClass != nil {
		if err := validateClass(*p.PriorityClass); err != nil {
			return nil, err
		}
	}

	var (
		updated       *store.Task
		prevStatus    store.Status
		statusChanged bool
		queueChanged  bool
	)
	err := e.withTx(ctx, func(tx *store.Tx) error {
		task, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		prevStatus = task.Status
		prevQueue := task.Queue

		applyUpdate(task, p)
		if task.Queue < 0 {
			task.Queue = 0
		}

		if p.ParentID != nil && *p.ParentID != nil {
			if **p.ParentID == id {
				return fmt.Errorf("%w: task %d cannot be its own parent", ErrInvalidArgument, id)
			}
			ok, err := tx.TaskExists(ctx, **p.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: parent task %d", ErrNotFound, **p.ParentID)
			}
		}

		// Lifecycle policy: queue membership is only meaningful for active
		// work. Clear rather than reject.
		queueCleared := false
		if !task.Status.QueueRelevant() && task.Queue != 0 {
			task.Queue = 0
			queueCleared = true
		}

		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}

		// Renumber whenever this update removed the task from the queue,
		// whether through the status change or an explicit queue write.
		if queueCleared || (prevQueue > 0 && task.Queue == 0) {
			if _, err := normalize(ctx, tx); err != nil {
				return err
			}
		}

		statusChanged = p.Status != nil && *p.Status != prevStatus
		queueChanged = task.Queue != prevQueue

		updated, err = tx.Task(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.record(telemetry.KindTaskUpdated, id, nil)
	if statusChanged {
		e.record(telemetry.KindStatusChanged, id, map[string]any{
			"from": prevStatus, "to": updated.Status,
		})
	}
	if queueChanged {
		e.record(telemetry.KindQueueChanged, id, map[string]any{"queue": updated.Queue})
	}
	return updated, nil
}

// DeleteTask deletes a task. Dependency edges in both directions and
// attached notes are removed with it; if the task held a queue position,
// the remaining queue is renumbered.
func (e *Engine) DeleteTask(ctx context.Context, id int64) error {
	err := e.withTx(ctx, func(tx *store.Tx) error {
		task, err := tx.Task(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: task %d", ErrNotFound, id)
		}
		if _, err := tx.DeleteTask(ctx, id); err != nil {
			return err
		}
		if task.Queue > 0 && task.Status.QueueRelevant() {
			if _, err := normalize(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.record(telemetry.KindTaskDeleted, id, nil)
	return nil
}

// applyUpdate copies the set fields of p onto task.
func applyUpdate(task *store.Task, p UpdateTaskParams) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Queue != nil {
		task.Queue = *p.Queue
	}
	if p.TaskSize != nil {
		task.TaskSize = *p.TaskSize
	}
	if p.PriorityClass != nil {
		task.PriorityClass = *p.PriorityClass
	}
	if p.ParentID != nil {
		task.ParentID = *p.ParentID
	}
	if p.Topic != nil {
		task.Topic = *p.Topic
	}
	if p.WorkCompleted != nil {
		task.WorkCompleted = *p.WorkCompleted
	}
	if p.WorkRemaining != nil {
		task.WorkRemaining = *p.WorkRemaining
	}
}

// validateSize checks the optional 1-5 task size scale.
func validateSize(size *int) error {
	if size == nil {
		return nil
	}
	if *size < 1 || *size > 5 {
		return fmt.Errorf("%w: task_size %d out of range 1-5", ErrInvalidArgument, *size)
	}
	return nil
}

// validateClass checks the optional A-E priority class.
func validateClass(class *string) error {
	if class == nil {
		return nil
	}
	switch *class {
	case "A", "B", "C", "D", "E":
		return nil
	}
	return fmt.Errorf("%w: priority_class %q out of range A-E", ErrInvalidArgument, *class)
}
