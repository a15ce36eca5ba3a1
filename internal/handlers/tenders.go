package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tenderwatch/db"
)

// GetTendersHandler returns a paginated tender list with optional
// sector, location and analyzed filters.
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	var filter db.TenderFilter
	filter.Sector = r.URL.Query().Get("sector")
	filter.Location = r.URL.Query().Get("location")
	if analyzedStr := r.URL.Query().Get("analyzed"); analyzedStr != "" {
		analyzed, err := strconv.ParseBool(analyzedStr)
		if err != nil {
			http.Error(w, "Invalid analyzed value", http.StatusBadRequest)
			return
		}
		filter.Analyzed = &analyzed
	}

	tenders, err := h.Store.GetTenders(r.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get tenders", http.StatusInternalServerError)
		return
	}

	total, err := h.Store.CountTenders(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to count tenders", http.StatusInternalServerError)
		return
	}

	if tenders == nil {
		tenders = []db.Tender{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total":   total,
		"limit":   params.Limit,
		"offset":  params.Offset,
		"tenders": tenders,
	})
}

func (h *Handler) GetTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "tenderId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid tenderId", http.StatusBadRequest)
		return
	}

	tender, err := h.Store.GetTender(r.Context(), id)
	if err != nil {
		http.Error(w, "Tender not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tender)
}

// GetTenderAnalysisHandler returns the analysis row for one tender.
func (h *Handler) GetTenderAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "tenderId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid tenderId", http.StatusBadRequest)
		return
	}

	analysis, err := h.Store.GetAnalysisByTender(r.Context(), id)
	if err != nil {
		http.Error(w, "Analysis not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis)
}

// DeleteTenderHandler removes a tender; the analysis cascades with it.
func (h *Handler) DeleteTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "tenderId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid tenderId", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteTender(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Tender not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete tender", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
