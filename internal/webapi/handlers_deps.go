package webapi

import (
	"net/http"

	"github.com/noctivagous/todotracker/internal/engine"
)

type DependencyHandler struct {
	eng *engine.Engine
}

func NewDependencyHandler(eng *engine.Engine) *DependencyHandler {
	return &DependencyHandler{eng: eng}
}

// List handles GET /api/tasks/{id}/dependencies
func (h *DependencyHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
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
	writeJSON(w, http.StatusOK, map[string]any{
		"prerequisites": toEdgeListJSON(prereqs),
		"dependents":    toEdgeListJSON(dependents),
	})
}

type addDependencyRequest struct {
	DependsOn int64 `json:"depends_on"`
}

// Add handles POST /api/tasks/{id}/dependencies
func (h *DependencyHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req addDependencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	edge, err := h.eng.AddDependency(r.Context(), id, req.DependsOn)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDependencyJSON(edge))
}

// Remove handles DELETE /api/dependencies/{id}
func (h *DependencyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dependency id")
		return
	}
	if err := h.eng.RemoveDependency(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ready handles GET /api/tasks/{id}/ready
func (h *DependencyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	ready, err := h.eng.IsReady(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "ready": ready})
}
