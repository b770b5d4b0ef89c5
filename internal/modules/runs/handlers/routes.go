package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all run history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{uuid}", h.HandleGet)
	})
}
