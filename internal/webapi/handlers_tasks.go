package webapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

type TaskHandler struct {
	eng *engine.Engine
}

func NewTaskHandler(eng *engine.Engine) *TaskHandler {
	return &TaskHandler{eng: eng}
}

// List handles GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := store.TaskFilter{
		Status: store.Status(q.Get("status")),
		Roots:  q.Get("roots") == "true",
		Limit:  limit,
		Offset: offset,
	}
	if p := q.Get("parent_id"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		f.ParentID = &id
	}

	tasks, err := h.eng.ListTasks(r.Context(), f)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": toTaskListJSON(tasks)})
}

type createTaskRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Queue         int     `json:"queue"`
	TaskSize      *int    `json:"task_size"`
	PriorityClass *string `json:"priority_class"`
	ParentID      *int64  `json:"parent_id"`
	Topic         string  `json:"topic"`
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := h.eng.CreateTask(r.Context(), engine.CreateTaskParams{
		Title:         req.Title,
		Description:   req.Description,
		Status:        store.Status(req.Status),
		Queue:         req.Queue,
		TaskSize:      req.TaskSize,
		PriorityClass: req.PriorityClass,
		ParentID:      req.ParentID,
		Topic:         req.Topic,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskJSON(task))
}

// Get handles GET /api/tasks/{id}. The response carries the task along with
// its resolved dependency edges and readiness.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.eng.GetTask(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	prereqs, err := h.eng.Prerequisites(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dependents, err := h.eng.Dependents(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	ready, err := h.eng.IsReady(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task":          toTaskJSON(task),
		"prerequisites": toEdgeListJSON(prereqs),
		"dependents":    toEdgeListJSON(dependents),
		"ready":         ready,
	})
}

type updateTaskRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Status        *string `json:"status"`
	Queue         *int    `json:"queue"`
	TaskSize      *int    `json:"task_size"`
	PriorityClass *string `json:"priority_class"`
	ParentID      *int64  `json:"parent_id"`
	Topic         *string `json:"topic"`
	WorkCompleted *string `json:"work_completed"`
	WorkRemaining *string `json:"work_remaining"`
}

// Update handles PATCH /api/tasks/{id}. Absent fields are left unchanged;
// an explicit JSON null clears the nullable fields (task_size,
// priority_class, parent_id).
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	var req updateTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	// A second pass over the raw keys distinguishes a field set to null
	// from a field that was never sent.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p := engine.UpdateTaskParams{
		Title:         req.Title,
		Description:   req.Description,
		Queue:         req.Queue,
		Topic:         req.Topic,
		WorkCompleted: req.WorkCompleted,
		WorkRemaining: req.WorkRemaining,
	}
	if req.Status != nil {
		s := store.Status(*req.Status)
		p.Status = &s
	}
	if _, ok := present["task_size"]; ok {
		p.TaskSize = &req.TaskSize
	}
	if _, ok := present["priority_class"]; ok {
		p.PriorityClass = &req.PriorityClass
	}
	if _, ok := present["parent_id"]; ok {
		p.ParentID = &req.ParentID
	}

	task, err := h.eng.UpdateTask(r.Context(), id, p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(task))
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := h.eng.DeleteTask(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
