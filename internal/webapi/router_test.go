package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(engine.New(st, nil), logger)
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

func createTask(t *testing.T, r http.Handler, title string) taskJSON {
	t.Helper()
	rec := doRequest(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %q: status %d, body %s", title, rec.Code, rec.Body.String())
	}
	return decodeBody[taskJSON](t, rec)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if id := rec.Header().Get("X-Request-ID"); id == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestTaskCRUD(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	t.Run("create and get", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, "/api/tasks", map[string]any{
			"title":     "write parser",
			"task_size": 3,
			"status":    "pending",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		created := decodeBody[taskJSON](t, rec)
		if created.Title != "write parser" || created.TaskSize == nil || *created.TaskSize != 3 {
			t.Errorf("unexpected task: %+v", created)
		}

		rec = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", created.ID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get: status = %d", rec.Code)
		}
		detail := decodeBody[struct {
			Task  taskJSON `json:"task"`
			Ready bool     `json:"ready"`
		}](t, rec)
		if detail.Task.ID != created.ID {
			t.Errorf("detail id = %d, want %d", detail.Task.ID, created.ID)
		}
		if !detail.Ready {
			t.Error("task with no prerequisites should be ready")
		}
	})

	t.Run("create requires title", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, "/api/tasks", map[string]any{"description": "no title"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("create rejects bad size", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "x", "task_size": 9})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("get missing task", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, "/api/tasks/99999", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad id is a 400", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, "/api/tasks/abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		task := createTask(t, r, "doomed")
		rec := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete: status = %d", rec.Code)
		}
		rec = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete: status = %d, want 404", rec.Code)
		}
	})
}

func TestTaskUpdate(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	t.Run("partial update leaves other fields", func(t *testing.T) {
		task := createTask(t, r, "original")
		rec := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID),
			map[string]any{"description": "now described"})
		if rec.Code != http.StatusOK {
			t.Fatalf("patch: status = %d, body %s", rec.Code, rec.Body.String())
		}
		got := decodeBody[taskJSON](t, rec)
		if got.Title != "original" || got.Description != "now described" {
			t.Errorf("unexpected task after patch: %+v", got)
		}
	})

	t.Run("null clears task_size", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "sized", "task_size": 4})
		task := decodeBody[taskJSON](t, rec)

		rec = doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID),
			map[string]any{"task_size": nil})
		if rec.Code != http.StatusOK {
			t.Fatalf("patch: status = %d", rec.Code)
		}
		got := decodeBody[taskJSON](t, rec)
		if got.TaskSize != nil {
			t.Errorf("task_size = %v, want cleared", *got.TaskSize)
		}
	})

	t.Run("completing clears queue", func(t *testing.T) {
		task := createTask(t, r, "queued work")
		doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/queue", task.ID), nil)

		rec := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID),
			map[string]any{"status": "completed"})
		if rec.Code != http.StatusOK {
			t.Fatalf("patch: status = %d, body %s", rec.Code, rec.Body.String())
		}
		got := decodeBody[taskJSON](t, rec)
		if got.Status != "completed" || got.Queue != 0 {
			t.Errorf("status=%q queue=%d, want completed/0", got.Status, got.Queue)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		task := createTask(t, r, "statusable")
		rec := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID),
			map[string]any{"status": "paused"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestQueueEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	a := createTask(t, r, "first")
	b := createTask(t, r, "second")
	c := createTask(t, r, "third")
	for _, task := range []taskJSON{a, b, c} {
		rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/queue", task.ID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("enqueue %d: status = %d", task.ID, rec.Code)
		}
	}

	queueIDs := func(t *testing.T) []int64 {
		t.Helper()
		rec := doRequest(t, r, http.MethodGet, "/api/queue", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("queue list: status = %d", rec.Code)
		}
		resp := decodeBody[struct {
			Queue []taskJSON `json:"queue"`
		}](t, rec)
		ids := make([]int64, len(resp.Queue))
		for i, task := range resp.Queue {
			if task.Queue != i+1 {
				t.Errorf("position %d holds queue value %d", i+1, task.Queue)
			}
			ids[i] = task.ID
		}
		return ids
	}

	if got := queueIDs(t); len(got) != 3 || got[0] != a.ID || got[1] != b.ID || got[2] != c.ID {
		t.Fatalf("initial queue = %v", got)
	}

	// Move third up one slot.
	rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/queue/up", c.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("move up: status = %d", rec.Code)
	}
	if got := queueIDs(t); got[1] != c.ID || got[2] != b.ID {
		t.Errorf("after move up: %v", got)
	}

	// Dequeue the head; the rest renumber from 1.
	rec = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d/queue", a.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dequeue: status = %d", rec.Code)
	}
	if got := queueIDs(t); len(got) != 2 || got[0] != c.ID {
		t.Errorf("after dequeue: %v", got)
	}

	// Normalize is idempotent and returns the queue.
	rec = doRequest(t, r, http.MethodPost, "/api/queue/normalize", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("normalize: status = %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/queue/max", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue max: status = %d", rec.Code)
	}
	if resp := decodeBody[struct {
		MaxQueue int `json:"max_queue"`
	}](t, rec); resp.MaxQueue != 2 {
		t.Errorf("max_queue = %d, want 2", resp.MaxQueue)
	}

	t.Run("size filter validation", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, "/api/queue?min_size=4&max_size=2", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("inverted bounds: status = %d, want 400", rec.Code)
		}
		rec = doRequest(t, r, http.MethodGet, "/api/queue?min_size=banana", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("non-numeric bound: status = %d, want 400", rec.Code)
		}
	})
}

func TestDependencyEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	a := createTask(t, r, "design")
	b := createTask(t, r, "build")

	rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/dependencies", b.ID),
		map[string]any{"depends_on": a.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add dependency: status = %d, body %s", rec.Code, rec.Body.String())
	}
	edge := decodeBody[dependencyJSON](t, rec)
	if edge.TaskID != b.ID || edge.DependsOnID != a.ID {
		t.Errorf("unexpected edge: %+v", edge)
	}

	t.Run("cycle is a conflict", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/dependencies", a.ID),
			map[string]any{"depends_on": b.ID})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("self dependency rejected", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/dependencies", a.ID),
			map[string]any{"depends_on": a.ID})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing prerequisite", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/dependencies", a.ID),
			map[string]any{"depends_on": 99999})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("readiness follows prerequisite status", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d/ready", b.ID), nil)
		ready := decodeBody[struct {
			Ready bool `json:"ready"`
		}](t, rec)
		if ready.Ready {
			t.Error("task with pending prerequisite should not be ready")
		}

		doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", a.ID),
			map[string]any{"status": "completed"})

		rec = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d/ready", b.ID), nil)
		ready = decodeBody[struct {
			Ready bool `json:"ready"`
		}](t, rec)
		if !ready.Ready {
			t.Error("task with completed prerequisite should be ready")
		}
	})

	t.Run("list and remove", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d/dependencies", b.ID), nil)
		resp := decodeBody[struct {
			Prerequisites []edgeJSON `json:"prerequisites"`
		}](t, rec)
		if len(resp.Prerequisites) != 1 || resp.Prerequisites[0].TaskID != a.ID {
			t.Fatalf("prerequisites = %+v", resp.Prerequisites)
		}

		rec = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/dependencies/%d", edge.ID), nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("remove: status = %d", rec.Code)
		}
		rec = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/dependencies/%d", edge.ID), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("second remove: status = %d, want 404", rec.Code)
		}
	})
}

func TestNoteEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	task := createTask(t, r, "annotated")

	rec := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/notes", task.ID),
		map[string]any{"content": "tricky edge in the tokenizer", "category": "gotcha"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add note: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodPost, "/api/notes",
		map[string]any{"content": "project kickoff decisions"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add project note: status = %d", rec.Code)
	}
	projectNote := decodeBody[noteJSON](t, rec)
	if projectNote.TaskID != nil {
		t.Errorf("project note has task_id %v", *projectNote.TaskID)
	}
	if projectNote.Category != "general" {
		t.Errorf("category = %q, want general default", projectNote.Category)
	}

	t.Run("empty content rejected", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodPost, "/api/notes", map[string]any{"content": "  "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("task notes excludes project notes", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d/notes", task.ID), nil)
		resp := decodeBody[struct {
			Notes []noteJSON `json:"notes"`
		}](t, rec)
		if len(resp.Notes) != 1 || resp.Notes[0].Category != "gotcha" {
			t.Errorf("task notes = %+v", resp.Notes)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/notes/%d", projectNote.ID), nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete: status = %d", rec.Code)
		}
		rec = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/notes/%d", projectNote.ID), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete: status = %d, want 404", rec.Code)
		}
	})
}
