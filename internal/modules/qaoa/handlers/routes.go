package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all QAOA routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/qaoa", func(r chi.Router) {
		r.Post("/optimize", h.HandleOptimize)
		r.Get("/limits", h.HandleLimits)
	})
}
