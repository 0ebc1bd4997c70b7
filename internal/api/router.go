package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/knowledge"
)

// NewRouter creates a chi router with the diagnostics routes mounted.
func NewRouter(store *knowledge.Store, threshold float64, maxResults int) chi.Router {
	h := NewHandler(store, threshold, maxResults)

	r := chi.NewRouter()
	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	return r
}
