// Package analyzer enriches scraped tenders with an AI-generated
// summary and structured fields sourced from an OpenAI-compatible
// completion API. Short texts skip the API entirely and are analyzed
// locally from the fields the scraper already found.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tenderwatch/db"
)

// Texts below this length carry too little signal to justify an API
// call; they are analyzed locally.
const aiTextThreshold = 300

// minTextLength is the floor below which a tender is skipped outright.
const minTextLength = 20

// maxPromptChars caps how much tender text goes into a prompt.
const maxPromptChars = 8000

const (
	batchSize          = 5
	defaultTenderDelay = 4 * time.Second
	defaultBatchDelay  = 20 * time.Second
)

// sectorChoices is the taxonomy offered to the extraction prompt.
var sectorChoices = []string{
	"Agriculture & Rural Development",
	"Agrifood & Processing",
	"Communication & Media",
	"Education & Training",
	"Energy, Water & Utilities",
	"Environment & Climate",
	"Consulting & Studies",
	"Supplies & Equipment",
	"Governance & Public Administration",
	"Real Estate & Urban Planning",
	"Industry & Commerce",
	"IT & Telecommunications",
	"Mining & Natural Resources",
	"Quality, Safety & Environment",
	"Health & Medical",
	"Security & Protection",
	"General Services",
	"Tourism, Culture & Leisure",
	"Transport & Logistics",
	"Construction & Public Works",
}

const defaultLocalSector = "General Services"

// Storage is the subset of the database layer the analyzer needs.
type Storage interface {
	GetUnanalyzedTenders(ctx context.Context) ([]db.Tender, error)
	MarkTenderAnalyzed(ctx context.Context, t *db.Tender) error
	CreateAnalysis(ctx context.Context, a *db.Analysis) error
}

type Service struct {
	storage   Storage
	completer Completer
	log       *zap.Logger

	tenderDelay time.Duration
	batchDelay  time.Duration
}

func NewService(storage Storage, completer Completer, log *zap.Logger) *Service {
	return &Service{
		storage:     storage,
		completer:   completer,
		log:         log,
		tenderDelay: defaultTenderDelay,
		batchDelay:  defaultBatchDelay,
	}
}

// GenerateSummary asks the model for a summary of at most 200 words.
func (s *Service) GenerateSummary(ctx context.Context, text string) (string, error) {
	systemPrompt := "You are an expert in public procurement analysis. " +
		"You produce clear, concise, professional summaries."

	userPrompt := fmt.Sprintf(`Summarize this tender notice in at most 200 words.
The summary must cover:
- the subject of the contract
- the contracting authority
- the main conditions
- the deadline if mentioned

Tender text:
---
%s
---

Summary (max 200 words):`, clip(text, maxPromptChars))

	return s.completer.Complete(ctx, systemPrompt, userPrompt, 500)
}

// ExtractStructuredData asks the model for the sector, budget,
// location and deadline of a tender. Parse failures fall back to
// neutral defaults rather than failing the whole analysis.
func (s *Service) ExtractStructuredData(ctx context.Context, text string) Extraction {
	systemPrompt := "You are a data extraction system. " +
		"Return the requested fields strictly as JSON with no extra text."

	userPrompt := fmt.Sprintf(`Analyze this tender text and extract the fields below.
Return ONLY a valid JSON object with these keys:

{
    "sector": "one of: %s",
    "estimated_budget": 0,
    "location": "place or geographic area",
    "deadline": "submission deadline as YYYY-MM-DD or null"
}

Rules:
- sector: pick the most relevant category
- estimated_budget: amount in USD (0 if not mentioned), number only
- location: the city, region or country mentioned
- deadline: YYYY-MM-DD format, or null if not found

Text:
---
%s
---

JSON:`, strings.Join(sectorChoices, ", "), clip(text, maxPromptChars))

	response, err := s.completer.Complete(ctx, systemPrompt, userPrompt, 300)
	if err != nil {
		s.log.Warn("extraction call failed", zap.Error(err))
		return defaultExtraction()
	}

	ext, err := parseExtraction(response)
	if err != nil {
		s.log.Warn("extraction response unparseable", zap.Error(err))
	}
	return ext
}

// analyzeLocally builds a summary and extraction from the fields the
// scraper already collected, without an API call.
func analyzeLocally(t *db.Tender) (string, Extraction) {
	desc := ""
	if t.Description != nil {
		desc = strings.TrimSpace(*t.Description)
	}

	var summary string
	if len(desc) > 30 {
		summary = fmt.Sprintf("Tender notice: %s. %s", t.Title, clip(desc, 300))
	} else {
		summary = fmt.Sprintf("Tender notice: %s. See the source for full details.", t.Title)
	}

	ext := Extraction{
		Sector:   defaultLocalSector,
		Location: locationUnspecified,
	}
	if t.Sector != nil && *t.Sector != "" {
		ext.Sector = *t.Sector
	}
	if t.Location != nil && *t.Location != "" {
		ext.Location = *t.Location
	}
	if t.EstimatedBudget != nil {
		ext.EstimatedBudget = *t.EstimatedBudget
	}
	return clip(summary, 500), ext
}

// AnalyzeTender runs the full analysis of one tender: summary plus
// structured extraction, then persists both the enriched tender and
// its analysis row. Returns nil without error when the tender has too
// little text to analyze.
func (s *Service) AnalyzeTender(ctx context.Context, t *db.Tender) (*db.Analysis, error) {
	text := t.Text()
	if len(text) < minTextLength {
		s.log.Warn("tender text too short to analyze", zap.Int("tender_id", t.ID))
		return nil, nil
	}

	useAI := len(text) >= aiTextThreshold && s.completer != nil

	var summary string
	var ext Extraction
	if useAI {
		var err error
		summary, err = s.GenerateSummary(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("summarize tender %d: %w", t.ID, err)
		}
		ext = s.ExtractStructuredData(ctx, text)
	} else {
		summary, ext = analyzeLocally(t)
	}

	// Extracted fields only fill gaps, never overwrite scraper data.
	if t.Sector == nil && ext.Sector != "" {
		t.Sector = &ext.Sector
	}
	if t.EstimatedBudget == nil && ext.EstimatedBudget > 0 {
		t.EstimatedBudget = &ext.EstimatedBudget
	}
	if t.Location == nil && ext.Location != "" {
		t.Location = &ext.Location
	}
	if t.Deadline == nil && ext.Deadline != nil {
		if d, err := time.Parse("2006-01-02", *ext.Deadline); err == nil {
			t.Deadline = &d
		}
	}

	if err := s.storage.MarkTenderAnalyzed(ctx, t); err != nil {
		return nil, fmt.Errorf("mark tender %d analyzed: %w", t.ID, err)
	}

	explanation := "Analysis complete, awaiting scoring"
	analysis := &db.Analysis{
		TenderID:          t.ID,
		Summary:           &summary,
		Score:             0.0,
		Explanation:       &explanation,
		ExtractedSector:   &ext.Sector,
		ExtractedBudget:   &ext.EstimatedBudget,
		ExtractedLocation: &ext.Location,
		ExtractedDeadline: ext.Deadline,
	}
	if err := s.storage.CreateAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("create analysis for tender %d: %w", t.ID, err)
	}

	s.log.Info("tender analyzed",
		zap.Int("tender_id", t.ID),
		zap.Bool("used_ai", useAI))
	return analysis, nil
}

// AnalyzeAllPending analyzes every unanalyzed tender in batches, with
// pauses between calls to stay under free-tier rate limits. A failure
// on one tender is logged and does not stop the batch.
func (s *Service) AnalyzeAllPending(ctx context.Context) ([]db.Analysis, error) {
	pending, err := s.storage.GetUnanalyzedTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending tenders: %w", err)
	}
	s.log.Info("analyzing pending tenders", zap.Int("count", len(pending)))

	var analyses []db.Analysis
	for i := range pending {
		if i > 0 {
			delay := s.tenderDelay
			if i%batchSize == 0 {
				delay = s.batchDelay
			}
			if err := sleep(ctx, delay); err != nil {
				return analyses, err
			}
		}

		analysis, err := s.AnalyzeTender(ctx, &pending[i])
		if err != nil {
			s.log.Error("tender analysis failed",
				zap.Int("tender_id", pending[i].ID),
				zap.Error(err))
			continue
		}
		if analysis != nil {
			analyses = append(analyses, *analysis)
		}
	}

	s.log.Info("analysis pass complete", zap.Int("analyzed", len(analyses)))
	return analyses, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
