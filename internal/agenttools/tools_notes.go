package agenttools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noctivagous/todotracker/internal/store"
)

// notePayload is the note shape returned by the note tools.
type notePayload struct {
	ID        int64  `json:"id"`
	TaskID    *int64 `json:"task_id,omitempty"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}

func fromNote(n *store.Note) notePayload {
	return notePayload{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Content:   n.Content,
		Category:  n.Category,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// addNoteInput is the input schema for the add_note tool.
type addNoteInput struct {
	TaskID   *int64 `json:"task_id,omitempty" jsonschema:"Task to attach the note to; omit for a project-level note"`
	Content  string `json:"content" jsonschema:"Note text"`
	Category string `json:"category,omitempty" jsonschema:"Note category (e.g. gotcha decision followup); defaults to general"`
}

type noteOutput struct {
	Note notePayload `json:"note"`
}

// listNotesInput is the input schema for the list_notes tool.
type listNotesInput struct {
	TaskID   *int64 `json:"task_id,omitempty" jsonschema:"Only notes attached to this task"`
	Category string `json:"category,omitempty" jsonschema:"Only notes in this category"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of notes to return"`
}

type noteListOutput struct {
	Notes []notePayload `json:"notes"`
}

// deleteNoteInput is the input schema for the delete_note tool.
type deleteNoteInput struct {
	ID int64 `json:"id" jsonschema:"Note id"`
}

// registerNoteTools registers the note MCP tools.
func (s *Server) registerNoteTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_note",
		Description: "Record a note on a task, or a project-level note when no task is given",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input addNoteInput) (*mcp.CallToolResult, noteOutput, error) {
		note, err := s.eng.AddNote(ctx, input.TaskID, input.Content, input.Category)
		if err != nil {
			return nil, noteOutput{}, fmt.Errorf("adding note: %w", err)
		}
		return nil, noteOutput{Note: fromNote(note)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_notes",
		Description: "List notes, optionally restricted to one task or category",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input listNotesInput) (*mcp.CallToolResult, noteListOutput, error) {
		notes, err := s.eng.Notes(ctx, input.TaskID, input.Category, input.Limit)
		if err != nil {
			return nil, noteListOutput{}, fmt.Errorf("listing notes: %w", err)
		}
		out := make([]notePayload, len(notes))
		for i := range notes {
			out[i] = fromNote(&notes[i])
		}
		return nil, noteListOutput{Notes: out}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note by id",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input deleteNoteInput) (*mcp.CallToolResult, okOutput, error) {
		if err := s.eng.DeleteNote(ctx, input.ID); err != nil {
			return nil, okOutput{}, fmt.Errorf("deleting note %d: %w", input.ID, err)
		}
		return nil, okOutput{OK: true}, nil
	})
}
