package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenderwatch/db"
)

func TestParseExtraction(t *testing.T) {
	ext, err := parseExtraction(`{"sector": "Health & Medical", "estimated_budget": 120000, "location": "Perth", "deadline": "2026-10-01"}`)
	require.NoError(t, err)
	require.Equal(t, "Health & Medical", ext.Sector)
	require.Equal(t, 120000.0, ext.EstimatedBudget)
	require.Equal(t, "Perth", ext.Location)
	require.NotNil(t, ext.Deadline)
	require.Equal(t, "2026-10-01", *ext.Deadline)
}

func TestParseExtractionMarkdownFences(t *testing.T) {
	raw := "```json\n{\"sector\": \"IT & Telecommunications\", \"estimated_budget\": \"50000\", \"location\": \"Sydney\", \"deadline\": null}\n```"
	ext, err := parseExtraction(raw)
	require.NoError(t, err)
	require.Equal(t, "IT & Telecommunications", ext.Sector)
	require.Equal(t, 50000.0, ext.EstimatedBudget)
	require.Nil(t, ext.Deadline)
}

func TestParseExtractionDefaultsOnGarbage(t *testing.T) {
	ext, err := parseExtraction("sorry, I cannot help with that")
	require.Error(t, err)
	require.Equal(t, "Undetermined", ext.Sector)
	require.Equal(t, 0.0, ext.EstimatedBudget)
	require.Equal(t, "Unspecified", ext.Location)
	require.Nil(t, ext.Deadline)
}

func TestParseExtractionEmptyFields(t *testing.T) {
	ext, err := parseExtraction(`{"sector": "", "estimated_budget": -5, "location": "", "deadline": "null"}`)
	require.NoError(t, err)
	require.Equal(t, "Undetermined", ext.Sector)
	require.Equal(t, 0.0, ext.EstimatedBudget)
	require.Equal(t, "Unspecified", ext.Location)
	require.Nil(t, ext.Deadline)
}

type fakeStorage struct {
	pending  []db.Tender
	marked   []int
	analyses []db.Analysis
}

func (f *fakeStorage) GetUnanalyzedTenders(ctx context.Context) ([]db.Tender, error) {
	return f.pending, nil
}

func (f *fakeStorage) MarkTenderAnalyzed(ctx context.Context, t *db.Tender) error {
	f.marked = append(f.marked, t.ID)
	t.IsAnalyzed = true
	return nil
}

func (f *fakeStorage) CreateAnalysis(ctx context.Context, a *db.Analysis) error {
	a.ID = len(f.analyses) + 1
	f.analyses = append(f.analyses, *a)
	return nil
}

type fakeCompleter struct {
	summary    string
	extraction string
	calls      int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.calls++
	if strings.Contains(systemPrompt, "extraction") {
		return f.extraction, nil
	}
	return f.summary, nil
}

func TestAnalyzeTenderShortTextStaysLocal(t *testing.T) {
	storage := &fakeStorage{}
	completer := &fakeCompleter{}
	svc := NewService(storage, completer, zap.NewNop())

	sector := "Construction & Public Works"
	tender := &db.Tender{
		ID:     7,
		Title:  "Road maintenance works",
		Sector: &sector,
	}

	analysis, err := svc.AnalyzeTender(context.Background(), tender)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	require.Equal(t, 0, completer.calls)
	require.Equal(t, []int{7}, storage.marked)
	require.True(t, tender.IsAnalyzed)
	require.Equal(t, sector, *analysis.ExtractedSector)
	require.Contains(t, *analysis.Summary, "Road maintenance works")
}

func TestAnalyzeTenderUsesAIForLongText(t *testing.T) {
	storage := &fakeStorage{}
	completer := &fakeCompleter{
		summary:    "A summary of the works.",
		extraction: `{"sector": "Construction & Public Works", "estimated_budget": 900000, "location": "Brisbane", "deadline": "2026-09-15"}`,
	}
	svc := NewService(storage, completer, zap.NewNop())

	raw := strings.Repeat("Detailed tender conditions. ", 20)
	tender := &db.Tender{ID: 3, Title: "Bridge rehabilitation", RawText: &raw}

	analysis, err := svc.AnalyzeTender(context.Background(), tender)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	require.Equal(t, 2, completer.calls)
	require.Equal(t, "A summary of the works.", *analysis.Summary)
	require.Equal(t, "Construction & Public Works", *tender.Sector)
	require.Equal(t, 900000.0, *tender.EstimatedBudget)
	require.Equal(t, "Brisbane", *tender.Location)
	require.NotNil(t, tender.Deadline)
	require.Equal(t, "2026-09-15", tender.Deadline.Format("2006-01-02"))
}

func TestAnalyzeTenderSkipsTinyText(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, &fakeCompleter{}, zap.NewNop())

	analysis, err := svc.AnalyzeTender(context.Background(), &db.Tender{ID: 1, Title: "short"})
	require.NoError(t, err)
	require.Nil(t, analysis)
	require.Empty(t, storage.marked)
}

func TestAnalyzeAllPending(t *testing.T) {
	sector := "General Services"
	storage := &fakeStorage{
		pending: []db.Tender{
			{ID: 1, Title: "Office cleaning services contract", Sector: &sector},
			{ID: 2, Title: "sh"},
		},
	}
	svc := NewService(storage, &fakeCompleter{}, zap.NewNop())
	svc.tenderDelay = 0
	svc.batchDelay = 0

	analyses, err := svc.AnalyzeAllPending(context.Background())
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	require.Equal(t, 1, analyses[0].TenderID)
}
