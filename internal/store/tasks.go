package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const taskColumns = `id, title, description, status, queue, task_size,
	priority_class, parent_id, topic, work_completed, work_remaining,
	created_at, updated_at`

// InsertTask inserts a new task row and returns its generated id.
// CreatedAt and UpdatedAt are stamped by the store.
func (t *Tx) InsertTask(ctx context.Context, task *Task) (int64, error) {
	ts := now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, queue, task_size,
			priority_class, parent_id, topic, work_completed, work_remaining,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.Description, string(task.Status), task.Queue,
		nullableInt(task.TaskSize), nullableString(task.PriorityClass),
		nullableInt64(task.ParentID), task.Topic,
		task.WorkCompleted, task.WorkRemaining, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("store: insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert task id: %w", err)
	}
	return id, nil
}

// Task returns the task with the given id, or nil if it does not exist.
func (t *Tx) Task(ctx context.Context, id int64) (*Task, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task %d: %w", id, err)
	}
	return task, nil
}

// TaskSummary returns the id/title/status projection of a task, or nil if
// the task does not exist.
func (t *Tx) TaskSummary(ctx context.Context, id int64) (*TaskSummary, error) {
	var s TaskSummary
	var status string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, title, status FROM tasks WHERE id = ?", id).
		Scan(&s.ID, &s.Title, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: task summary %d: %w", id, err)
	}
	s.Status = Status(status)
	return &s, nil
}

// TaskExists reports whether a task with the given id exists.
func (t *Tx) TaskExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: task exists %d: %w", id, err)
	}
	return true, nil
}

// UpdateTask writes all mutable columns of the task row identified by
// task.ID and stamps updated_at.
func (t *Tx) UpdateTask(ctx context.Context, task *Task) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, queue = ?,
			task_size = ?, priority_class = ?, parent_id = ?, topic = ?,
			work_completed = ?, work_remaining = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, string(task.Status), task.Queue,
		nullableInt(task.TaskSize), nullableString(task.PriorityClass),
		nullableInt64(task.ParentID), task.Topic,
		task.WorkCompleted, task.WorkRemaining, now(), task.ID)
	if err != nil {
		return fmt.Errorf("store: update task %d: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update task %d rows affected: %w", task.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("store: update task %d: no such row", task.ID)
	}
	return nil
}

// SetQueue updates only the queue column of a task and stamps updated_at.
func (t *Tx) SetQueue(ctx context.Context, id int64, pos int) error {
	if _, err := t.tx.ExecContext(ctx,
		"UPDATE tasks SET queue = ?, updated_at = ? WHERE id = ?",
		pos, now(), id); err != nil {
		return fmt.Errorf("store: set queue %d=%d: %w", id, pos, err)
	}
	return nil
}

// DeleteTask deletes a task row along with its dependency edges in both
// directions and its notes. The edges and notes are deleted explicitly;
// the foreign_keys pragma is connection-scoped and cannot be relied on
// across pool recycling. Returns false if the task does not exist.
func (t *Tx) DeleteTask(ctx context.Context, id int64) (bool, error) {
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM dependencies WHERE task_id = ? OR depends_on_id = ?", id, id); err != nil {
		return false, fmt.Errorf("store: delete task %d edges: %w", id, err)
	}
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM notes WHERE task_id = ?", id); err != nil {
		return false, fmt.Errorf("store: delete task %d notes: %w", id, err)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("store: delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete task %d rows affected: %w", id, err)
	}
	return n > 0, nil
}

// TaskFilter narrows a Tasks listing. Zero values mean "no constraint".
type TaskFilter struct {
	Status   Status
	ParentID *int64 // lists children of the given task
	Roots    bool   // lists only tasks without a parent
	Limit    int
	Offset   int
}

// Tasks returns task rows matching the filter, ordered by id ascending.
func (t *Tx) Tasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ParentID != nil {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, *f.ParentID)
	} else if f.Roots {
		clauses = append(clauses, "parent_id IS NULL")
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}
	return t.queryTasks(ctx, query, args...)
}

// QueuedFilter narrows a Queued listing. Size bounds are inclusive; when
// either bound is set, tasks without a task_size are excluded.
type QueuedFilter struct {
	Limit   int
	MinSize *int
	MaxSize *int
}

// Queued returns queue-relevant queued tasks ordered by queue ascending
// with id as tie-break.
func (t *Tx) Queued(ctx context.Context, f QueuedFilter) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE " + queueRelevantFilter
	var args []any
	if f.MinSize != nil || f.MaxSize != nil {
		query += " AND task_size IS NOT NULL"
		if f.MinSize != nil {
			query += " AND task_size >= ?"
			args = append(args, *f.MinSize)
		}
		if f.MaxSize != nil {
			query += " AND task_size <= ?"
			args = append(args, *f.MaxSize)
		}
	}
	query += " ORDER BY queue ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return t.queryTasks(ctx, query, args...)
}

// TaskAtQueue returns the queue-relevant task at the given queue position,
// or nil if no task occupies that slot.
func (t *Tx) TaskAtQueue(ctx context.Context, pos int) (*Task, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE "+queueRelevantFilter+
			" AND queue = ? ORDER BY id LIMIT 1", pos)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: task at queue %d: %w", pos, err)
	}
	return task, nil
}

// MaxQueue returns the maximum queue value among queue-relevant queued
// tasks, or 0 if the queue is empty.
func (t *Tx) MaxQueue(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		"SELECT MAX(queue) FROM tasks WHERE "+queueRelevantFilter).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("store: max queue: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// queryTasks is a shared helper for scanning task rows.
func (t *Tx) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query tasks: %w", err)
	}
	defer rows.Close()

	var result []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		result = append(result, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate tasks: %w", err)
	}
	return result, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var (
		task                 Task
		status               string
		size                 sql.NullInt64
		class                sql.NullString
		parent               sql.NullInt64
		createdAt, updatedAt string
	)
	if err := s.Scan(&task.ID, &task.Title, &task.Description, &status,
		&task.Queue, &size, &class, &parent, &task.Topic,
		&task.WorkCompleted, &task.WorkRemaining,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	task.Status = Status(status)
	if size.Valid {
		v := int(size.Int64)
		task.TaskSize = &v
	}
	if class.Valid {
		v := class.String
		task.PriorityClass = &v
	}
	if parent.Valid {
		v := parent.Int64
		task.ParentID = &v
	}
	var err error
	if task.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
