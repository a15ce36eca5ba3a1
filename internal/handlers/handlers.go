package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Handler wires the HTTP layer to storage and the domain services.
type Handler struct {
	Store    StorageInterface
	Scorer   ScorerInterface
	Mailer   MailerInterface
	Pipeline PipelineInterface
	Log      *zap.Logger
}

func NewHandler(store StorageInterface, sc ScorerInterface, mailer MailerInterface, pipe PipelineInterface, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Scorer:   sc,
		Mailer:   mailer,
		Pipeline: pipe,
		Log:      log,
	}
}

// HealthHandler reports service and database health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.Store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams parses limit and offset from the query with
// defaults and bounds.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 50, Offset: 0}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			params.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}
