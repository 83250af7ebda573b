package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const noteColumns = "id, task_id, content, category, created_at"

// InsertNote inserts a note row and returns its generated id. A nil taskID
// makes it a project-level note.
func (t *Tx) InsertNote(ctx context.Context, taskID *int64, content, category string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO notes (task_id, content, category, created_at)
		VALUES (?, ?, ?, ?)`,
		nullableInt64(taskID), content, category, now())
	if err != nil {
		return 0, fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert note id: %w", err)
	}
	return id, nil
}

// Note returns the note with the given id, or nil if absent.
func (t *Tx) Note(ctx context.Context, id int64) (*Note, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note %d: %w", id, err)
	}
	return note, nil
}

// Notes returns notes ordered by id. If taskID is non-nil only notes
// attached to that task are returned; if category is non-empty only notes
// in that category.
func (t *Tx) Notes(ctx context.Context, taskID *int64, category string, limit int) ([]Note, error) {
	var (
		clauses []string
		args    []any
	)
	if taskID != nil {
		clauses = append(clauses, "task_id = ?")
		args = append(args, *taskID)
	}
	if category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, category)
	}

	query := "SELECT " + noteColumns + " FROM notes"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query notes: %w", err)
	}
	defer rows.Close()

	var result []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		result = append(result, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate notes: %w", err)
	}
	return result, nil
}

// DeleteNote deletes the note with the given id. Returns false if no such
// note exists.
func (t *Tx) DeleteNote(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("store: delete note %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete note %d rows affected: %w", id, err)
	}
	return n > 0, nil
}

func scanNote(s scanner) (*Note, error) {
	var (
		note      Note
		taskID    sql.NullInt64
		createdAt string
	)
	if err := s.Scan(&note.ID, &taskID, &note.Content, &note.Category, &createdAt); err != nil {
		return nil, err
	}
	if taskID.Valid {
		v := taskID.Int64
		note.TaskID = &v
	}
	var err error
	if note.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &note, nil
}
