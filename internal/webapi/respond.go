package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrCycle):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type taskJSON struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	Queue         int       `json:"queue"`
	TaskSize      *int      `json:"task_size,omitempty"`
	PriorityClass *string   `json:"priority_class,omitempty"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	Topic         string    `json:"topic,omitempty"`
	WorkCompleted string    `json:"work_completed,omitempty"`
	WorkRemaining string    `json:"work_remaining,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toTaskJSON(t *store.Task) taskJSON {
	return taskJSON{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Queue:         t.Queue,
		TaskSize:      t.TaskSize,
		PriorityClass: t.PriorityClass,
		ParentID:      t.ParentID,
		Topic:         t.Topic,
		WorkCompleted: t.WorkCompleted,
		WorkRemaining: t.WorkRemaining,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toTaskListJSON(tasks []store.Task) []taskJSON {
	out := make([]taskJSON, len(tasks))
	for i := range tasks {
		out[i] = toTaskJSON(&tasks[i])
	}
	return out
}

type dependencyJSON struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	DependsOnID int64     `json:"depends_on_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDependencyJSON(d *store.Dependency) dependencyJSON {
	return dependencyJSON{
		ID:          d.ID,
		TaskID:      d.TaskID,
		DependsOnID: d.DependsOnID,
		CreatedAt:   d.CreatedAt,
	}
}

type edgeJSON struct {
	Edge   dependencyJSON `json:"edge"`
	TaskID int64          `json:"id"`
	Title  string         `json:"title"`
	Status string         `json:"status"`
}

func toEdgeListJSON(infos []engine.DependencyInfo) []edgeJSON {
	out := make([]edgeJSON, len(infos))
	for i, info := range infos {
		out[i] = edgeJSON{
			Edge:   toDependencyJSON(&info.Edge),
			TaskID: info.Task.ID,
			Title:  info.Task.Title,
			Status: string(info.Task.Status),
		}
	}
	return out
}

type noteJSON struct {
	ID        int64     `json:"id"`
	TaskID    *int64    `json:"task_id,omitempty"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteJSON(n *store.Note) noteJSON {
	return noteJSON{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Content:   n.Content,
		Category:  n.Category,
		CreatedAt: n.CreatedAt,
	}
}

func toNoteListJSON(notes []store.Note) []noteJSON {
	out := make([]noteJSON, len(notes))
	for i := range notes {
		out[i] = toNoteJSON(&notes[i])
	}
	return out
}
