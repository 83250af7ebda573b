package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/noctivagous/todotracker/internal/store"
	"github.com/noctivagous/todotracker/internal/telemetry"
)

// AddNote attaches a note to a task, or records a project-level note when
// taskID is nil. An empty category defaults to "general".
func (e *Engine) AddNote(ctx context.Context, taskID *int64, content, category string) (*store.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(category) == "" {
		category = "general"
	}

	var note *store.Note
	err := e.withTx(ctx, func(tx *store.Tx) error {
		if taskID != nil {
			ok, err := tx.TaskExists(ctx, *taskID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: task %d", ErrNotFound, *taskID)
			}
		}
		id, err := tx.InsertNote(ctx, taskID, content, category)
		if err != nil {
			return err
		}
		note, err = tx.Note(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	var forTask int64
	if taskID != nil {
		forTask = *taskID
	}
	e.record(telemetry.KindNoteAdded, forTask, map[string]any{"note": note.ID})
	return note, nil
}

// Notes lists notes, optionally restricted to one task and/or category.
func (e *Engine) Notes(ctx context.Context, taskID *int64, category string, limit int) ([]store.Note, error) {
	var notes []store.Note
	err := e.withTx(ctx, func(tx *store.Tx) error {
		var err error
		notes, err = tx.Notes(ctx, taskID, category, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// DeleteNote deletes a note by id.
func (e *Engine) DeleteNote(ctx context.Context, id int64) error {
	return e.withTx(ctx, func(tx *store.Tx) error {
		ok, err := tx.DeleteNote(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: note %d", ErrNotFound, id)
		}
		return nil
	})
}
