package webapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

type QueueHandler struct {
	eng *engine.Engine
}

func NewQueueHandler(eng *engine.Engine) *QueueHandler {
	return &QueueHandler{eng: eng}
}

// List handles GET /api/queue
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	f := store.QueuedFilter{Limit: limit}
	for param, dst := range map[string]**int{"min_size": &f.MinSize, "max_size": &f.MaxSize} {
		if v := q.Get(param); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+param)
				return
			}
			*dst = &n
		}
	}

	tasks, err := h.eng.Queued(r.Context(), f)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": toTaskListJSON(tasks)})
}

// Max handles GET /api/queue/max
func (h *QueueHandler) Max(w http.ResponseWriter, r *http.Request) {
	max, err := h.eng.MaxQueue(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"max_queue": max})
}

// Normalize handles POST /api/queue/normalize
func (h *QueueHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.Normalize(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	tasks, err := h.eng.Queued(r.Context(), store.QueuedFilter{})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": toTaskListJSON(tasks)})
}

// Enqueue handles POST /api/tasks/{id}/queue
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.eng.AddToQueue)
}

// Dequeue handles DELETE /api/tasks/{id}/queue
func (h *QueueHandler) Dequeue(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.eng.RemoveFromQueue)
}

// MoveUp handles POST /api/tasks/{id}/queue/up
func (h *QueueHandler) MoveUp(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.eng.MoveUp)
}

// MoveDown handles POST /api/tasks/{id}/queue/down
func (h *QueueHandler) MoveDown(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.eng.MoveDown)
}

func (h *QueueHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*store.Task, error)) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := op(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(task))
}
