// Package webapi exposes the tracker engine over HTTP for dashboards and
// collaborating tools. All state lives in the engine; handlers translate
// between JSON and engine calls.
package webapi

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/noctivagous/todotracker/internal/engine"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(eng *engine.Engine, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	taskH := NewTaskHandler(eng)
	queueH := NewQueueHandler(eng)
	depH := NewDependencyHandler(eng)
	noteH := NewNoteHandler(eng)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskH.List)
			r.Post("/", taskH.Create)
			r.Get("/{id}", taskH.Get)
			r.Patch("/{id}", taskH.Update)
			r.Delete("/{id}", taskH.Delete)

			r.Post("/{id}/queue", queueH.Enqueue)
			r.Delete("/{id}/queue", queueH.Dequeue)
			r.Post("/{id}/queue/up", queueH.MoveUp)
			r.Post("/{id}/queue/down", queueH.MoveDown)

			r.Get("/{id}/dependencies", depH.List)
			r.Post("/{id}/dependencies", depH.Add)
			r.Get("/{id}/ready", depH.Ready)

			r.Get("/{id}/notes", noteH.ListForTask)
			r.Post("/{id}/notes", noteH.AddForTask)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", queueH.List)
			r.Get("/max", queueH.Max)
			r.Post("/normalize", queueH.Normalize)
		})

		r.Delete("/dependencies/{id}", depH.Remove)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteH.List)
			r.Post("/", noteH.Add)
			r.Delete("/{id}", noteH.Delete)
		})
	})

	return r
}
