package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenderwatch/internal/pipeline"
	"tenderwatch/internal/scorer"
)

// GetAnalysisHandler scores every analyzed tender for one enterprise
// and returns the matches ordered by score.
func (h *Handler) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "enterpriseId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid enterpriseId", http.StatusBadRequest)
		return
	}

	minScore := 0.0
	if minScoreStr := r.URL.Query().Get("minScore"); minScoreStr != "" {
		minScore, err = strconv.ParseFloat(minScoreStr, 64)
		if err != nil || minScore < 0 || minScore > 100 {
			http.Error(w, "Invalid minScore value", http.StatusBadRequest)
			return
		}
	}

	enterprise, err := h.Store.GetEnterprise(r.Context(), id)
	if err != nil {
		http.Error(w, "Enterprise not found", http.StatusNotFound)
		return
	}

	scored, err := h.Scorer.ScoreAllForEnterprise(r.Context(), enterprise)
	if err != nil {
		http.Error(w, "Failed to score tenders", http.StatusInternalServerError)
		return
	}

	matches := make([]scorer.ScoredTender, 0, len(scored))
	for _, s := range scored {
		if s.Score >= minScore {
			matches = append(matches, s)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"enterpriseId":   enterprise.ID,
		"enterpriseName": enterprise.Name,
		"count":          len(matches),
		"matches":        matches,
	})
}

// SendReportHandler builds and sends the digest for one enterprise.
func (h *Handler) SendReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "enterpriseId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid enterpriseId", http.StatusBadRequest)
		return
	}

	enterprise, err := h.Store.GetEnterprise(r.Context(), id)
	if err != nil {
		http.Error(w, "Enterprise not found", http.StatusNotFound)
		return
	}
	if enterprise.Email == nil || *enterprise.Email == "" {
		http.Error(w, "Enterprise has no email address", http.StatusBadRequest)
		return
	}

	scored, err := h.Scorer.ScoreAllForEnterprise(r.Context(), enterprise)
	if err != nil {
		http.Error(w, "Failed to score tenders", http.StatusInternalServerError)
		return
	}
	if len(scored) == 0 {
		http.Error(w, "No analyzed tenders to report", http.StatusNotFound)
		return
	}

	if err := h.Mailer.SendDigest(r.Context(), enterprise, scored); err != nil {
		http.Error(w, "Failed to send report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "sent",
		"tenders": len(scored),
	})
}

// SendAllReportsHandler sends the digest to every enterprise with an
// email address.
func (h *Handler) SendAllReportsHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.Pipeline.SendAllReports(r.Context())
	if err != nil {
		http.Error(w, "Failed to send reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// RunScrapeHandler triggers one full cycle outside the schedule. The
// cycle runs in the background; a second trigger while busy is a 409.
func (h *Handler) RunScrapeHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan error, 1)
	go func() {
		done <- h.Pipeline.Run(context.Background())
	}()

	// A busy pipeline rejects immediately; give it a moment so the
	// caller gets a 409 instead of a phantom 202.
	select {
	case err := <-done:
		if errors.Is(err, pipeline.ErrCycleRunning) {
			http.Error(w, "A cycle is already running", http.StatusConflict)
			return
		}
		if err != nil {
			h.Log.Error("manual cycle failed", zap.Error(err))
			http.Error(w, "Cycle failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
	case <-time.After(100 * time.Millisecond):
		go func() {
			if err := <-done; err != nil {
				h.Log.Error("manual cycle failed", zap.Error(err))
			}
		}()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "started"})
	}
}
