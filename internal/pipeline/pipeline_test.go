package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenderwatch/db"
	"tenderwatch/internal/scorer"
)

type fakeScraper struct {
	tenders    []db.Tender
	downloaded []string
}

func (f *fakeScraper) ScrapeTenders(_ context.Context) ([]db.Tender, error) {
	return f.tenders, nil
}

func (f *fakeScraper) DownloadPDF(_ context.Context, url string) (string, error) {
	f.downloaded = append(f.downloaded, url)
	return "/tmp/doc.pdf", nil
}

type fakeAnalyzer struct {
	called bool
}

func (f *fakeAnalyzer) AnalyzeAllPending(_ context.Context) ([]db.Analysis, error) {
	f.called = true
	return nil, nil
}

type fakeScorer struct {
	byEnterprise map[int][]scorer.ScoredTender
	err          error
}

func (f *fakeScorer) ScoreAllForEnterprise(_ context.Context, e *db.Enterprise) ([]scorer.ScoredTender, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEnterprise[e.ID], nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendDigest(_ context.Context, e *db.Enterprise, _ []scorer.ScoredTender) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e.Name)
	return nil
}

type fakeStorage struct {
	enterprises []db.Enterprise
	docs        map[int]string
}

func (f *fakeStorage) GetEnterprisesWithEmail(_ context.Context) ([]db.Enterprise, error) {
	return f.enterprises, nil
}

func (f *fakeStorage) UpdateTenderDocument(_ context.Context, id int, _ string, rawText string) error {
	if f.docs == nil {
		f.docs = map[int]string{}
	}
	f.docs[id] = rawText
	return nil
}

func strPtr(s string) *string { return &s }

func TestRunFullCycle(t *testing.T) {
	email := strPtr("ops@example.com")
	storage := &fakeStorage{
		enterprises: []db.Enterprise{
			{ID: 1, Name: "BuildCo", Email: email},
			{ID: 2, Name: "NoMatch Ltd", Email: email},
		},
	}
	scr := &fakeScraper{
		tenders: []db.Tender{
			{ID: 10, Title: "Road works", SourceURL: "https://portal.example.com/tender/10"},
			{ID: 11, Title: "Bridge study", SourceURL: "https://portal.example.com/docs/11.pdf"},
		},
	}
	an := &fakeAnalyzer{}
	sc := &fakeScorer{
		byEnterprise: map[int][]scorer.ScoredTender{
			1: {{TenderID: 10, TenderTitle: "Road works", Score: 82}},
		},
	}
	ml := &fakeMailer{}

	p := New(storage, scr, an, sc, ml, zap.NewNop())
	p.extract = func(_ context.Context, _ string) (string, error) {
		return "extracted tender text", nil
	}

	err := p.Run(context.Background())
	require.NoError(t, err)

	require.True(t, an.called)
	require.Equal(t, []string{"https://portal.example.com/docs/11.pdf"}, scr.downloaded)
	require.Equal(t, "extracted tender text", storage.docs[11])
	require.Equal(t, []string{"BuildCo"}, ml.sent)
}

func TestRunRejectsOverlap(t *testing.T) {
	p := New(&fakeStorage{}, &fakeScraper{}, &fakeAnalyzer{}, &fakeScorer{}, &fakeMailer{}, zap.NewNop())
	p.running.Store(true)

	err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrCycleRunning)
}

func TestSendAllReportsCounts(t *testing.T) {
	email := strPtr("ops@example.com")
	storage := &fakeStorage{
		enterprises: []db.Enterprise{
			{ID: 1, Name: "Sent Co", Email: email},
			{ID: 2, Name: "Empty Co", Email: email},
			{ID: 3, Name: "Fail Co", Email: email},
		},
	}
	sc := &fakeScorer{
		byEnterprise: map[int][]scorer.ScoredTender{
			1: {{TenderID: 10, Score: 70}},
			3: {{TenderID: 11, Score: 50}},
		},
	}
	ml := &failOnceMailer{failFor: "Fail Co"}

	p := New(storage, &fakeScraper{}, &fakeAnalyzer{}, sc, ml, zap.NewNop())

	results, err := p.SendAllReports(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, results.Sent)
	require.Equal(t, 1, results.Failed)
	require.Equal(t, 1, results.Skipped)
}

type failOnceMailer struct {
	failFor string
	sent    []string
}

func (f *failOnceMailer) SendDigest(_ context.Context, e *db.Enterprise, _ []scorer.ScoredTender) error {
	if e.Name == f.failFor {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, e.Name)
	return nil
}

func TestSendAllReportsScoringError(t *testing.T) {
	storage := &fakeStorage{
		enterprises: []db.Enterprise{{ID: 1, Name: "Broken Co", Email: strPtr("x@example.com")}},
	}
	sc := &fakeScorer{err: errors.New("db gone")}

	p := New(storage, &fakeScraper{}, &fakeAnalyzer{}, sc, &fakeMailer{}, zap.NewNop())

	results, err := p.SendAllReports(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, results.Failed)
	require.Zero(t, results.Sent)
}

func TestNextRunAt(t *testing.T) {
	now := time.Date(2026, 8, 31, 5, 30, 0, 0, time.UTC)

	next := nextRunAt(now, 7)
	require.Equal(t, time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC), next)

	next = nextRunAt(now, 5)
	require.Equal(t, time.Date(2026, 9, 1, 5, 0, 0, 0, time.UTC), next)
}
