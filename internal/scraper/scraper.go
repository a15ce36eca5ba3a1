// Package scraper collects tender notices from the source portal's
// category listing pages and stores the new ones.
package scraper

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"tenderwatch/db"
)

// Browser-like headers; some portals refuse requests without them.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

var deadlineFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/2006 15:04",
	"2 January 2006",
	"2 Jan 2006",
}

// Storage is the subset of the database layer the scraper needs.
type Storage interface {
	GetEnterpriseSectors(ctx context.Context) ([]string, error)
	TenderExists(ctx context.Context, sourceURL string) (bool, error)
	CreateTender(ctx context.Context, t *db.Tender) error
}

type Service struct {
	storage      Storage
	client       *http.Client
	baseURL      string
	pdfDir       string
	maxPerSource int
	log          *zap.Logger
}

func NewService(storage Storage, baseURL, pdfDir string, maxPerSource int, log *zap.Logger) *Service {
	return &Service{
		storage:      storage,
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		pdfDir:       pdfDir,
		maxPerSource: maxPerSource,
		log:          log,
	}
}

// fetchPage downloads a listing page, retrying transient failures
// with exponential backoff.
func (s *Service) fetchPage(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(2, retry.NewExponential(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("status %d from %s", resp.StatusCode, url))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d from %s", resp.StatusCode, url)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

// ScrapeTenders visits the listing categories relevant to the
// registered enterprises and stores every tender not yet seen.
// Failures on individual categories are logged, not fatal.
func (s *Service) ScrapeTenders(ctx context.Context) ([]db.Tender, error) {
	sectors, err := s.storage.GetEnterpriseSectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enterprise sectors: %w", err)
	}

	categories := CategoriesFor(sectors, s.baseURL)
	s.log.Info("scraping source categories",
		zap.Int("categories", len(categories)),
		zap.Strings("sectors", sectors))

	var all []Candidate
	for category, url := range categories {
		body, err := s.fetchPage(ctx, url)
		if err != nil {
			s.log.Warn("category fetch failed",
				zap.String("category", category),
				zap.Error(err))
			continue
		}
		candidates, err := ParseListings(bytes.NewReader(body), s.baseURL, category)
		if err != nil {
			s.log.Warn("category parse failed",
				zap.String("category", category),
				zap.Error(err))
			continue
		}
		if s.maxPerSource > 0 && len(candidates) > s.maxPerSource {
			candidates = candidates[:s.maxPerSource]
		}
		all = append(all, candidates...)
	}

	// Dedup within the run; cross-run dedup is the source_url check.
	seen := map[string]bool{}
	var created []db.Tender
	for _, c := range all {
		if seen[c.SourceURL] {
			continue
		}
		seen[c.SourceURL] = true

		exists, err := s.storage.TenderExists(ctx, c.SourceURL)
		if err != nil {
			return created, fmt.Errorf("check tender %s: %w", c.SourceURL, err)
		}
		if exists {
			continue
		}

		tender := candidateToTender(c)
		if err := s.storage.CreateTender(ctx, tender); err != nil {
			s.log.Error("tender insert failed",
				zap.String("source_url", c.SourceURL),
				zap.Error(err))
			continue
		}
		s.log.Info("new tender",
			zap.Int("tender_id", tender.ID),
			zap.String("title", clipText(tender.Title, 60)))
		created = append(created, *tender)
	}

	s.log.Info("scrape complete",
		zap.Int("new", len(created)),
		zap.Int("listed", len(all)))
	return created, nil
}

func candidateToTender(c Candidate) *db.Tender {
	t := &db.Tender{
		Title:     c.Title,
		SourceURL: c.SourceURL,
	}
	if c.Description != "" {
		t.Description = &c.Description
	}
	if c.Sector != "" {
		t.Sector = &c.Sector
	}
	if c.Location != "" {
		t.Location = &c.Location
	}
	if d := ParseDeadline(c.DeadlineStr); d != nil {
		t.Deadline = d
	}
	return t
}

// ParseDeadline tries each known date layout in turn.
func ParseDeadline(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range deadlineFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// DownloadPDF fetches a tender document and stores it under the PDF
// directory, named by the hash of its URL. Returns the local path.
func (s *Service) DownloadPDF(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(s.pdfDir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf dir: %w", err)
	}

	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewExponential(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d from %s", resp.StatusCode, url)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("download pdf %s: %w", url, err)
	}

	filename := fmt.Sprintf("%x.pdf", md5.Sum([]byte(url)))
	path := filepath.Join(s.pdfDir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	s.log.Info("pdf saved",
		zap.String("path", path),
		zap.Int("bytes", len(body)))
	return path, nil
}
