package webapi

import (
	"net/http"
	"strconv"

	"github.com/noctivagous/todotracker/internal/engine"
)

type NoteHandler struct {
	eng *engine.Engine
}

func NewNoteHandler(eng *engine.Engine) *NoteHandler {
	return &NoteHandler{eng: eng}
}

type addNoteRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// List handles GET /api/notes (project-wide, optionally by category)
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := h.eng.Notes(r.Context(), nil, r.URL.Query().Get("category"), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": toNoteListJSON(notes)})
}

// Add handles POST /api/notes (project-level note)
func (h *NoteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	note, err := h.eng.AddNote(r.Context(), nil, req.Content, req.Category)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteJSON(note))
}

// ListForTask handles GET /api/tasks/{id}/notes
func (h *NoteHandler) ListForTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := h.eng.Notes(r.Context(), &id, r.URL.Query().Get("category"), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": toNoteListJSON(notes)})
}

// AddForTask handles POST /api/tasks/{id}/notes
func (h *NoteHandler) AddForTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req addNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	note, err := h.eng.AddNote(r.Context(), &id, req.Content, req.Category)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteJSON(note))
}

// Delete handles DELETE /api/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	if err := h.eng.DeleteNote(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
