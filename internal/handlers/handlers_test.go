package handlers_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenderwatch/db"
	"tenderwatch/internal/handlers"
	"tenderwatch/internal/handlers/testutils"
	"tenderwatch/internal/pipeline"
	"tenderwatch/internal/scorer"
)

// MockStorage implements StorageInterface.
type MockStorage struct {
	pingErr             error
	enterprise          *db.Enterprise
	createEnterpriseErr error
	deleteEnterpriseErr error
	deleteTenderErr     error
	analysis            *db.Analysis
	emailLogs           []db.EmailLog
	GetTendersFunc      func(ctx context.Context, filter db.TenderFilter, limit, offset int) ([]db.Tender, error)
}

func (m *MockStorage) Ping(ctx context.Context) error { return m.pingErr }

func (m *MockStorage) CreateEnterprise(ctx context.Context, e *db.Enterprise) error {
	if m.createEnterpriseErr != nil {
		return m.createEnterpriseErr
	}
	e.ID = 1
	return nil
}

func (m *MockStorage) GetEnterprise(ctx context.Context, id int) (*db.Enterprise, error) {
	if m.enterprise == nil {
		return nil, errors.New("not found")
	}
	return m.enterprise, nil
}

func (m *MockStorage) GetEnterprises(ctx context.Context, sector string, limit, offset int) ([]db.Enterprise, error) {
	return []db.Enterprise{{ID: 1, Name: "Sample Enterprise", Sector: "Construction"}}, nil
}

func (m *MockStorage) UpdateEnterprise(ctx context.Context, e *db.Enterprise) error { return nil }
func (m *MockStorage) DeleteEnterprise(ctx context.Context, id int) error {
	return m.deleteEnterpriseErr
}

func (m *MockStorage) GetTender(ctx context.Context, id int) (*db.Tender, error) {
	return &db.Tender{ID: id, Title: "Test Tender", SourceURL: fmt.Sprintf("https://portal.example.com/tender/%d", id)}, nil
}

func (m *MockStorage) GetTenders(ctx context.Context, filter db.TenderFilter, limit, offset int) ([]db.Tender, error) {
	if m.GetTendersFunc != nil {
		return m.GetTendersFunc(ctx, filter, limit, offset)
	}
	return []db.Tender{{ID: 1, Title: "Sample Tender", SourceURL: "https://portal.example.com/tender/1"}}, nil
}

func (m *MockStorage) CountTenders(ctx context.Context, filter db.TenderFilter) (int, error) {
	return 1, nil
}

func (m *MockStorage) DeleteTender(ctx context.Context, id int) error {
	return m.deleteTenderErr
}

func (m *MockStorage) GetAnalysisByTender(ctx context.Context, tenderID int) (*db.Analysis, error) {
	if m.analysis == nil {
		return nil, errors.New("not found")
	}
	return m.analysis, nil
}

func (m *MockStorage) GetEmailLogs(ctx context.Context, enterpriseID, limit, offset int) ([]db.EmailLog, error) {
	return m.emailLogs, nil
}

type MockScorer struct {
	scored []scorer.ScoredTender
	err    error
}

func (m *MockScorer) ScoreAllForEnterprise(ctx context.Context, e *db.Enterprise) ([]scorer.ScoredTender, error) {
	return m.scored, m.err
}

type MockMailer struct {
	digests  int
	welcomes int
	err      error
}

func (m *MockMailer) SendWelcome(ctx context.Context, e *db.Enterprise) error {
	m.welcomes++
	return m.err
}

func (m *MockMailer) SendDigest(ctx context.Context, e *db.Enterprise, scored []scorer.ScoredTender) error {
	if m.err != nil {
		return m.err
	}
	m.digests++
	return nil
}

type MockPipeline struct {
	runErr  error
	results pipeline.ReportResults
}

func (m *MockPipeline) Run(ctx context.Context) error { return m.runErr }
func (m *MockPipeline) SendAllReports(ctx context.Context) (pipeline.ReportResults, error) {
	return m.results, nil
}

func newTestHandler(store *MockStorage, sc *MockScorer, ml *MockMailer, pipe *MockPipeline) *handlers.Handler {
	if store == nil {
		store = &MockStorage{}
	}
	if sc == nil {
		sc = &MockScorer{}
	}
	if ml == nil {
		ml = &MockMailer{}
	}
	if pipe == nil {
		pipe = &MockPipeline{}
	}
	return handlers.NewHandler(store, sc, ml, pipe, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestHealthHandler(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HealthHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "healthy")
}

func TestHealthHandlerDatabaseDown(t *testing.T) {
	handler := newTestHandler(&MockStorage{pingErr: errors.New("connection refused")}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HealthHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestCreateEnterpriseHandler(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	reqBody := `{
        "name": "BTP Excellence",
        "sector": "Construction",
        "minBudget": 100000,
        "maxBudget": 5000000,
        "experienceYears": 8
    }`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enterprises", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.CreateEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Contains(t, string(body), "BTP Excellence")
	require.Contains(t, string(body), `"experienceYears":8`)
}

func TestCreateEnterpriseHandlerDuplicate(t *testing.T) {
	store := &MockStorage{createEnterpriseErr: fmt.Errorf("%w: enterprises_name_key", db.ErrDuplicate)}
	handler := newTestHandler(store, nil, nil, nil)

	reqBody := `{"name": "BTP Excellence", "sector": "Construction"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enterprises", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	handler.CreateEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestCreateEnterpriseHandlerValidation(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	reqBody := `{"name": "", "sector": "Construction"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enterprises", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	handler.CreateEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetEnterprisesHandler(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enterprises", nil)
	w := httptest.NewRecorder()

	handler.GetEnterprisesHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Sample Enterprise")
}

func TestGetEnterpriseHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enterprises/42", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "42"})
	w := httptest.NewRecorder()

	handler.GetEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUpdateEnterpriseHandler(t *testing.T) {
	store := &MockStorage{
		enterprise: &db.Enterprise{ID: 1, Name: "Old Name", Sector: "Construction"},
	}
	handler := newTestHandler(store, nil, nil, nil)

	reqBody := `{"name": "New Name"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/enterprises/1", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "1"})
	w := httptest.NewRecorder()

	handler.UpdateEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "New Name")
}

func TestDeleteEnterpriseHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{deleteEnterpriseErr: sql.ErrNoRows}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/enterprises/42", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "42"})
	w := httptest.NewRecorder()

	handler.DeleteEnterpriseHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetTendersHandler(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenders?sector=Construction", nil)
	w := httptest.NewRecorder()

	handler.GetTendersHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Sample Tender")
	require.Contains(t, string(body), `"total":1`)
}

func TestGetTendersHandlerInvalidAnalyzed(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenders?analyzed=maybe", nil)
	w := httptest.NewRecorder()

	handler.GetTendersHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetTenderAnalysisHandler(t *testing.T) {
	store := &MockStorage{
		analysis: &db.Analysis{ID: 5, TenderID: 10, Summary: strPtr("Road rebuild in two phases")},
	}
	handler := newTestHandler(store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenders/10/analysis", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": "10"})
	w := httptest.NewRecorder()

	handler.GetTenderAnalysisHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Road rebuild")
}

func TestGetTenderAnalysisHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenders/10/analysis", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": "10"})
	w := httptest.NewRecorder()

	handler.GetTenderAnalysisHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDeleteTenderHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tenders/10", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": "10"})
	w := httptest.NewRecorder()

	handler.DeleteTenderHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestDeleteTenderHandlerNotFound(t *testing.T) {
	handler := newTestHandler(&MockStorage{deleteTenderErr: sql.ErrNoRows}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tenders/42", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": "42"})
	w := httptest.NewRecorder()

	handler.DeleteTenderHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetEmailLogsHandler(t *testing.T) {
	store := &MockStorage{
		enterprise: &db.Enterprise{ID: 1, Name: "BTP Excellence"},
		emailLogs: []db.EmailLog{
			{ID: 1, EnterpriseID: 1, RecipientEmail: "ops@example.com", Status: "sent"},
			{ID: 2, EnterpriseID: 1, RecipientEmail: "ops@example.com", Status: "failed"},
		},
	}
	handler := newTestHandler(store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enterprises/1/email-logs", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "1"})
	w := httptest.NewRecorder()

	handler.GetEmailLogsHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"status":"sent"`)
	require.Contains(t, string(body), `"status":"failed"`)
}

func TestGetAnalysisHandler(t *testing.T) {
	store := &MockStorage{
		enterprise: &db.Enterprise{ID: 1, Name: "BTP Excellence", Sector: "Construction"},
	}
	sc := &MockScorer{
		scored: []scorer.ScoredTender{
			{TenderID: 10, TenderTitle: "Road works", Score: 82.5},
			{TenderID: 11, TenderTitle: "Office supplies", Score: 12.0},
		},
	}
	handler := newTestHandler(store, sc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/1?minScore=50", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "1"})
	w := httptest.NewRecorder()

	handler.GetAnalysisHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Road works")
	require.NotContains(t, string(body), "Office supplies")
	require.Contains(t, string(body), `"count":1`)
}

func TestSendReportHandler(t *testing.T) {
	store := &MockStorage{
		enterprise: &db.Enterprise{ID: 1, Name: "BTP Excellence", Email: strPtr("ops@example.com")},
	}
	sc := &MockScorer{scored: []scorer.ScoredTender{{TenderID: 10, Score: 70}}}
	ml := &MockMailer{}
	handler := newTestHandler(store, sc, ml, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/send-report/1", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "1"})
	w := httptest.NewRecorder()

	handler.SendReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "sent")
	require.Equal(t, 1, ml.digests)
}

func TestSendReportHandlerNoEmail(t *testing.T) {
	store := &MockStorage{
		enterprise: &db.Enterprise{ID: 1, Name: "BTP Excellence"},
	}
	handler := newTestHandler(store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/send-report/1", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"enterpriseId": "1"})
	w := httptest.NewRecorder()

	handler.SendReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSendAllReportsHandler(t *testing.T) {
	pipe := &MockPipeline{results: pipeline.ReportResults{Sent: 2, Skipped: 1}}
	handler := newTestHandler(nil, nil, nil, pipe)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/send-all-reports", nil)
	w := httptest.NewRecorder()

	handler.SendAllReportsHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"sent":2`)
}

func TestRunScrapeHandlerConflict(t *testing.T) {
	pipe := &MockPipeline{runErr: pipeline.ErrCycleRunning}
	handler := newTestHandler(nil, nil, nil, pipe)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape/run", nil)
	w := httptest.NewRecorder()

	handler.RunScrapeHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	require.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestRunScrapeHandlerCompletes(t *testing.T) {
	handler := newTestHandler(nil, nil, nil, &MockPipeline{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape/run", nil)
	w := httptest.NewRecorder()

	handler.RunScrapeHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "completed")
}
