package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenderwatch/db"
)

// CreateEnterpriseHandler handles POST /api/v1/enterprises.
func (h *Handler) CreateEnterpriseHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var enterprise db.Enterprise
	if err := json.Unmarshal(body, &enterprise); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if err := validateEnterpriseRequest(&enterprise); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.CreateEnterprise(r.Context(), &enterprise); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			http.Error(w, "Enterprise with this name already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create enterprise", http.StatusInternalServerError)
		return
	}

	// Welcome email is best effort and must not delay the response.
	if h.Mailer != nil && enterprise.Email != nil {
		e := enterprise
		go func() {
			if err := h.Mailer.SendWelcome(context.Background(), &e); err != nil {
				h.Log.Warn("welcome email failed",
					zap.String("enterprise", e.Name),
					zap.Error(err))
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(enterprise)
}

func validateEnterpriseRequest(e *db.Enterprise) error {
	if e.Name == "" || len(e.Name) > 255 {
		return errors.New("name is required and max length 255")
	}
	if e.Sector == "" || len(e.Sector) > 255 {
		return errors.New("sector is required and max length 255")
	}
	if e.ExperienceYears < 0 {
		return errors.New("experienceYears must not be negative")
	}
	if e.MinBudget < 0 || e.MaxBudget < 0 {
		return errors.New("budget bounds must not be negative")
	}
	if e.MaxBudget > 0 && e.MinBudget > e.MaxBudget {
		return errors.New("minBudget must not exceed maxBudget")
	}
	return nil
}

// GetEnterprisesHandler returns the enterprise list with an optional
// sector filter.
func (h *Handler) GetEnterprisesHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	sector := r.URL.Query().Get("sector")

	enterprises, err := h.Store.GetEnterprises(r.Context(), sector, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get enterprises", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enterprises)
}

func (h *Handler) GetEnterpriseHandler(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enterprise)
}

// UpdateEnterpriseHandler applies a partial update to an enterprise.
func (h *Handler) UpdateEnterpriseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "enterpriseId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid enterpriseId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Cannot read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var input struct {
		Name              *string  `json:"name"`
		Sector            *string  `json:"sector"`
		Zones             *string  `json:"zones"`
		MinBudget         *float64 `json:"minBudget"`
		MaxBudget         *float64 `json:"maxBudget"`
		ExperienceYears   *int     `json:"experienceYears"`
		TechnicalCapacity *string  `json:"technicalCapacity"`
		Email             *string  `json:"email"`
		SpecificKeywords  *string  `json:"specificKeywords"`
		ExcludeKeywords   *string  `json:"excludeKeywords"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	enterprise, err := h.Store.GetEnterprise(r.Context(), id)
	if err != nil {
		http.Error(w, "Enterprise not found", http.StatusNotFound)
		return
	}

	if input.Name != nil {
		enterprise.Name = *input.Name
	}
	if input.Sector != nil {
		enterprise.Sector = *input.Sector
	}
	if input.Zones != nil {
		enterprise.Zones = input.Zones
	}
	if input.MinBudget != nil {
		enterprise.MinBudget = *input.MinBudget
	}
	if input.MaxBudget != nil {
		enterprise.MaxBudget = *input.MaxBudget
	}
	if input.ExperienceYears != nil {
		enterprise.ExperienceYears = *input.ExperienceYears
	}
	if input.TechnicalCapacity != nil {
		enterprise.TechnicalCapacity = input.TechnicalCapacity
	}
	if input.Email != nil {
		enterprise.Email = input.Email
	}
	if input.SpecificKeywords != nil {
		enterprise.SpecificKeywords = input.SpecificKeywords
	}
	if input.ExcludeKeywords != nil {
		enterprise.ExcludeKeywords = input.ExcludeKeywords
	}

	if err := validateEnterpriseRequest(enterprise); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateEnterprise(r.Context(), enterprise); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			http.Error(w, "Enterprise with this name already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to update enterprise", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enterprise)
}

// GetEmailLogsHandler returns the notification audit trail for one
// enterprise, newest first.
func (h *Handler) GetEmailLogsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "enterpriseId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid enterpriseId", http.StatusBadRequest)
		return
	}
	params := parsePaginationParams(r)

	if _, err := h.Store.GetEnterprise(r.Context(), id); err != nil {
		http.Error(w, "Enterprise not found", http.StatusNotFound)
		return
	}

	logs, err := h.Store.GetEmailLogs(r.Context(), id, params.Limit, params.Offset)
	if err != nil {
		http.Error(w, "Failed to get email logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

func (h *Handler) DeleteEnterpriseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "enterpriseId"))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid enterpriseId", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteEnterprise(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Enterprise not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete enterprise", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
