// Package api implements the keep-alive and diagnostics HTTP endpoints.
// Everything here is read-only; the chat surface stays the source of truth
// for user interaction.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/match"
)

// Handler holds the diagnostics route handlers.
type Handler struct {
	store      *knowledge.Store
	threshold  float64
	maxResults int
	startedAt  time.Time
}

// NewHandler creates a Handler around the knowledge store.
func NewHandler(store *knowledge.Store, threshold float64, maxResults int) *Handler {
	return &Handler{
		store:      store,
		threshold:  threshold,
		maxResults: maxResults,
		startedAt:  time.Now(),
	}
}

// Status handles GET /, the keep-alive probe used by free hosting.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"service":   "ansuz",
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Search handles GET /api/search?q=...&limit=N and returns ranked matches.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit := h.maxResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}

	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	results := match.Match(q, snap, h.threshold, limit)
	if results == nil {
		results = []match.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrSourceUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("knowledge base unavailable"))
		return
	}
	slog.Error("api: store error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
