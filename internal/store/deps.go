package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const depColumns = "id, task_id, depends_on_id, created_at"

// InsertDependency inserts a new dependency edge and returns it.
func (t *Tx) InsertDependency(ctx context.Context, taskID, dependsOnID int64) (*Dependency, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO dependencies (task_id, depends_on_id, created_at)
		VALUES (?, ?, ?)`,
		taskID, dependsOnID, now())
	if err != nil {
		return nil, fmt.Errorf("store: insert dependency %d->%d: %w", taskID, dependsOnID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: insert dependency id: %w", err)
	}
	return t.Dependency(ctx, id)
}

// Dependency returns the edge with the given id, or nil if absent.
func (t *Tx) Dependency(ctx context.Context, id int64) (*Dependency, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+depColumns+" FROM dependencies WHERE id = ?", id)
	dep, err := scanDependency(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get dependency %d: %w", id, err)
	}
	return dep, nil
}

// FindDependency returns the edge for the given (task, prerequisite) pair,
// or nil if no such edge exists.
func (t *Tx) FindDependency(ctx context.Context, taskID, dependsOnID int64) (*Dependency, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+depColumns+" FROM dependencies WHERE task_id = ? AND depends_on_id = ?",
		taskID, dependsOnID)
	dep, err := scanDependency(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find dependency %d->%d: %w", taskID, dependsOnID, err)
	}
	return dep, nil
}

// DeleteDependency deletes the edge with the given id. Returns false if
// no such edge exists.
func (t *Tx) DeleteDependency(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM dependencies WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("store: delete dependency %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete dependency %d rows affected: %w", id, err)
	}
	return n > 0, nil
}

// DependenciesOf returns all edges where the given task is the dependent,
// i.e. its prerequisites.
func (t *Tx) DependenciesOf(ctx context.Context, taskID int64) ([]Dependency, error) {
	return t.queryDependencies(ctx,
		"SELECT "+depColumns+" FROM dependencies WHERE task_id = ? ORDER BY id", taskID)
}

// DependentsOf returns all edges where the given task is the prerequisite,
// i.e. the tasks waiting on it.
func (t *Tx) DependentsOf(ctx context.Context, taskID int64) ([]Dependency, error) {
	return t.queryDependencies(ctx,
		"SELECT "+depColumns+" FROM dependencies WHERE depends_on_id = ? ORDER BY id", taskID)
}

// DependsOnIDs returns the prerequisite ids of the given task. This is the
// adjacency query the cycle-detection traversal walks.
func (t *Tx) DependsOnIDs(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT depends_on_id FROM dependencies WHERE task_id = ?", taskID)
	if err != nil {
		return nil, fmt.Errorf("store: depends-on ids %d: %w", taskID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan depends-on id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate depends-on ids: %w", err)
	}
	return ids, nil
}

// queryDependencies is a shared helper for scanning edge rows.
func (t *Tx) queryDependencies(ctx context.Context, query string, args ...any) ([]Dependency, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query dependencies: %w", err)
	}
	defer rows.Close()

	var result []Dependency
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan dependency: %w", err)
		}
		result = append(result, *dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate dependencies: %w", err)
	}
	return result, nil
}

func scanDependency(s scanner) (*Dependency, error) {
	var (
		dep       Dependency
		createdAt string
	)
	if err := s.Scan(&dep.ID, &dep.TaskID, &dep.DependsOnID, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if dep.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &dep, nil
}
