// Package api exposes batch control over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter sets up routes and applies global middleware.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/batch", h.CurrentBatch)
		r.Post("/batch", h.StartBatch)
		r.Delete("/batch", h.StopBatch)

		r.Get("/events", h.Events)
		r.Get("/events/stream", h.Stream)

		r.Get("/transformations", h.Transformations)
		r.Get("/diagnostics", h.Diagnostics)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.SaveSettings)
	})

	return r
}
