// Package pipeline orchestrates the daily cycle: scrape the source
// portal, pull text out of PDF documents, run AI analysis, then score
// and email a digest to every registered enterprise.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tenderwatch/db"
	"tenderwatch/internal/pdftext"
	"tenderwatch/internal/scorer"
)

// ErrCycleRunning is returned when a run is requested while another
// cycle is still in progress.
var ErrCycleRunning = errors.New("cycle already running")

type Scraper interface {
	ScrapeTenders(ctx context.Context) ([]db.Tender, error)
	DownloadPDF(ctx context.Context, url string) (string, error)
}

type Analyzer interface {
	AnalyzeAllPending(ctx context.Context) ([]db.Analysis, error)
}

type Scorer interface {
	ScoreAllForEnterprise(ctx context.Context, e *db.Enterprise) ([]scorer.ScoredTender, error)
}

type Mailer interface {
	SendDigest(ctx context.Context, e *db.Enterprise, scored []scorer.ScoredTender) error
}

// Storage is the subset of the database layer the pipeline needs.
type Storage interface {
	GetEnterprisesWithEmail(ctx context.Context) ([]db.Enterprise, error)
	UpdateTenderDocument(ctx context.Context, id int, pdfPath, rawText string) error
}

// ReportResults tallies one digest distribution pass.
type ReportResults struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type Pipeline struct {
	storage  Storage
	scraper  Scraper
	analyzer Analyzer
	scorer   Scorer
	mailer   Mailer
	log      *zap.Logger

	// extract is swappable in tests.
	extract func(ctx context.Context, path string) (string, error)

	running atomic.Bool
}

func New(storage Storage, scraper Scraper, analyzer Analyzer, sc Scorer, mailer Mailer, log *zap.Logger) *Pipeline {
	return &Pipeline{
		storage:  storage,
		scraper:  scraper,
		analyzer: analyzer,
		scorer:   sc,
		mailer:   mailer,
		log:      log,
		extract:  pdftext.ExtractFile,
	}
}

// Run executes one full cycle. Only one cycle runs at a time; a
// second call while busy returns ErrCycleRunning.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	defer p.running.Store(false)

	started := time.Now()
	p.log.Info("daily cycle started")

	newTenders, err := p.scraper.ScrapeTenders(ctx)
	if err != nil {
		return err
	}

	p.extractDocuments(ctx, newTenders)

	if _, err := p.analyzer.AnalyzeAllPending(ctx); err != nil {
		return err
	}

	results, err := p.SendAllReports(ctx)
	if err != nil {
		return err
	}

	p.log.Info("daily cycle complete",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("new_tenders", len(newTenders)),
		zap.Int("reports_sent", results.Sent),
		zap.Int("reports_failed", results.Failed))
	return nil
}

// extractDocuments downloads and extracts text from tenders whose
// source is a PDF document. Failures are logged per tender.
func (p *Pipeline) extractDocuments(ctx context.Context, tenders []db.Tender) {
	for _, t := range tenders {
		if !strings.HasSuffix(strings.ToLower(t.SourceURL), ".pdf") {
			continue
		}
		path, err := p.scraper.DownloadPDF(ctx, t.SourceURL)
		if err != nil {
			p.log.Warn("pdf download failed",
				zap.Int("tender_id", t.ID),
				zap.Error(err))
			continue
		}
		text, err := p.extract(ctx, path)
		if err != nil {
			p.log.Warn("pdf text extraction failed",
				zap.Int("tender_id", t.ID),
				zap.Error(err))
			continue
		}
		if err := p.storage.UpdateTenderDocument(ctx, t.ID, path, text); err != nil {
			p.log.Error("tender document update failed",
				zap.Int("tender_id", t.ID),
				zap.Error(err))
		}
	}
}

// SendAllReports scores every analyzed tender for each enterprise
// with an email address and sends the digests. Enterprises with no
// scored tenders are skipped.
func (p *Pipeline) SendAllReports(ctx context.Context) (ReportResults, error) {
	var results ReportResults

	enterprises, err := p.storage.GetEnterprisesWithEmail(ctx)
	if err != nil {
		return results, err
	}

	for i := range enterprises {
		e := &enterprises[i]
		scored, err := p.scorer.ScoreAllForEnterprise(ctx, e)
		if err != nil {
			p.log.Error("scoring failed",
				zap.String("enterprise", e.Name),
				zap.Error(err))
			results.Failed++
			continue
		}
		if len(scored) == 0 {
			results.Skipped++
			continue
		}
		if err := p.mailer.SendDigest(ctx, e, scored); err != nil {
			results.Failed++
			continue
		}
		results.Sent++
	}

	p.log.Info("digest distribution complete",
		zap.Int("sent", results.Sent),
		zap.Int("failed", results.Failed),
		zap.Int("skipped", results.Skipped))
	return results, nil
}

// Start launches the scheduler goroutine firing Run once a day at the
// given UTC hour. It returns immediately; cancel ctx to stop.
func (p *Pipeline) Start(ctx context.Context, hour int) {
	go func() {
		for {
			next := nextRunAt(time.Now().UTC(), hour)
			p.log.Info("next cycle scheduled", zap.Time("at", next))

			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := p.Run(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
				p.log.Error("daily cycle failed", zap.Error(err))
			}
		}
	}()
}

// nextRunAt returns the next occurrence of the given hour after now.
func nextRunAt(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
