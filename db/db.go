package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Ping checks database connectivity for the health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Enterprise is a registered company profile used for relevance matching.
type Enterprise struct {
	ID                int       `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Sector            string    `db:"sector" json:"sector"`
	MinBudget         float64   `db:"min_budget" json:"minBudget"`
	MaxBudget         float64   `db:"max_budget" json:"maxBudget"`
	Zones             *string   `db:"zones" json:"zones"`
	ExperienceYears   int       `db:"experience_years" json:"experienceYears"`
	TechnicalCapacity *string   `db:"technical_capacity" json:"technicalCapacity"`
	Email             *string   `db:"email" json:"email"`
	SpecificKeywords  *string   `db:"specific_keywords" json:"specificKeywords"`
	ExcludeKeywords   *string   `db:"exclude_keywords" json:"excludeKeywords"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"-"`
}

// ZoneList splits the comma-separated zones column into trimmed lowercase entries.
func (e *Enterprise) ZoneList() []string {
	if e.Zones == nil || strings.TrimSpace(*e.Zones) == "" {
		return nil
	}
	parts := strings.Split(*e.Zones, ",")
	zones := make([]string, 0, len(parts))
	for _, p := range parts {
		if z := strings.ToLower(strings.TrimSpace(p)); z != "" {
			zones = append(zones, z)
		}
	}
	return zones
}

func (s *Storage) CreateEnterprise(ctx context.Context, e *Enterprise) error {
	query := `
        INSERT INTO enterprises
            (name, sector, min_budget, max_budget, zones, experience_years,
             technical_capacity, email, specific_keywords, exclude_keywords)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		e.Name, e.Sector, e.MinBudget, e.MaxBudget, e.Zones, e.ExperienceYears,
		e.TechnicalCapacity, e.Email, e.SpecificKeywords, e.ExcludeKeywords).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translateError(err)
}

func (s *Storage) GetEnterprise(ctx context.Context, id int) (*Enterprise, error) {
	e := &Enterprise{}
	query := `SELECT * FROM enterprises WHERE id=$1`
	err := s.db.GetContext(ctx, e, query, id)
	return e, err
}

func (s *Storage) GetEnterprises(ctx context.Context, sector string, limit, offset int) ([]Enterprise, error) {
	enterprises := []Enterprise{}
	if sector != "" {
		query := `
            SELECT * FROM enterprises
            WHERE sector ILIKE '%' || $1 || '%'
            ORDER BY name ASC
            LIMIT $2 OFFSET $3`
		err := s.db.SelectContext(ctx, &enterprises, query, sector, limit, offset)
		return enterprises, err
	}
	query := `SELECT * FROM enterprises ORDER BY name ASC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &enterprises, query, limit, offset)
	return enterprises, err
}

// GetEnterprisesWithEmail returns every enterprise that can receive digests.
func (s *Storage) GetEnterprisesWithEmail(ctx context.Context) ([]Enterprise, error) {
	enterprises := []Enterprise{}
	query := `SELECT * FROM enterprises WHERE email IS NOT NULL AND email <> '' ORDER BY id ASC`
	err := s.db.SelectContext(ctx, &enterprises, query)
	return enterprises, err
}

// GetEnterpriseSectors returns the distinct sectors of registered enterprises,
// used by the scraper to pick which source categories to visit.
func (s *Storage) GetEnterpriseSectors(ctx context.Context) ([]string, error) {
	sectors := []string{}
	query := `SELECT DISTINCT sector FROM enterprises WHERE sector <> ''`
	err := s.db.SelectContext(ctx, &sectors, query)
	return sectors, err
}

func (s *Storage) UpdateEnterprise(ctx context.Context, e *Enterprise) error {
	query := `
        UPDATE enterprises
        SET name=$1, sector=$2, min_budget=$3, max_budget=$4, zones=$5,
            experience_years=$6, technical_capacity=$7, email=$8,
            specific_keywords=$9, exclude_keywords=$10, updated_at=NOW()
        WHERE id=$11`
	_, err := s.db.ExecContext(ctx, query,
		e.Name, e.Sector, e.MinBudget, e.MaxBudget, e.Zones, e.ExperienceYears,
		e.TechnicalCapacity, e.Email, e.SpecificKeywords, e.ExcludeKeywords, e.ID)
	return err
}

func (s *Storage) DeleteEnterprise(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM enterprises WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Tender is a scraped procurement opportunity, one row per unique source URL.
type Tender struct {
	ID              int        `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Description     *string    `db:"description" json:"description"`
	RawText         *string    `db:"raw_text" json:"-"`
	Sector          *string    `db:"sector" json:"sector"`
	EstimatedBudget *float64   `db:"estimated_budget" json:"estimatedBudget"`
	Location        *string    `db:"location" json:"location"`
	Deadline        *time.Time `db:"deadline" json:"deadline"`
	SourceURL       string     `db:"source_url" json:"sourceUrl"`
	PDFPath         *string    `db:"pdf_path" json:"-"`
	IsAnalyzed      bool       `db:"is_analyzed" json:"isAnalyzed"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// Text returns the richest available text for analysis and scoring.
func (t *Tender) Text() string {
	if t.RawText != nil && strings.TrimSpace(*t.RawText) != "" {
		return *t.RawText
	}
	if t.Description != nil && strings.TrimSpace(*t.Description) != "" {
		return *t.Description
	}
	return t.Title
}

func (s *Storage) CreateTender(ctx context.Context, t *Tender) error {
	query := `
        INSERT INTO tenders
            (title, description, raw_text, sector, estimated_budget, location,
             deadline, source_url, pdf_path, is_analyzed)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.RawText, t.Sector, t.EstimatedBudget,
		t.Location, t.Deadline, t.SourceURL, t.PDFPath).
		Scan(&t.ID, &t.CreatedAt)
	return translateError(err)
}

func (s *Storage) GetTender(ctx context.Context, id int) (*Tender, error) {
	t := &Tender{}
	query := `SELECT * FROM tenders WHERE id=$1`
	err := s.db.GetContext(ctx, t, query, id)
	return t, err
}

func (s *Storage) TenderExists(ctx context.Context, sourceURL string) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM tenders WHERE source_url=$1`
	err := s.db.GetContext(ctx, &count, query, sourceURL)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// TenderFilter narrows GetTenders results. Zero values mean "no filter".
type TenderFilter struct {
	Sector   string
	Location string
	Analyzed *bool
}

func (f TenderFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if f.Sector != "" {
		args = append(args, f.Sector)
		clauses = append(clauses, fmt.Sprintf("sector ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if f.Location != "" {
		args = append(args, f.Location)
		clauses = append(clauses, fmt.Sprintf("location ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if f.Analyzed != nil {
		args = append(args, *f.Analyzed)
		clauses = append(clauses, fmt.Sprintf("is_analyzed = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Storage) GetTenders(ctx context.Context, filter TenderFilter, limit, offset int) ([]Tender, error) {
	where, args := filter.where()
	query := "SELECT * FROM tenders" + where + " ORDER BY created_at DESC"
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	tenders := []Tender{}
	err := s.db.SelectContext(ctx, &tenders, query, args...)
	return tenders, err
}

func (s *Storage) CountTenders(ctx context.Context, filter TenderFilter) (int, error) {
	where, args := filter.where()
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(1) FROM tenders"+where, args...)
	return count, err
}

// UpdateTenderDocument stores the downloaded document path and its
// extracted text ahead of analysis.
func (s *Storage) UpdateTenderDocument(ctx context.Context, id int, pdfPath, rawText string) error {
	query := `UPDATE tenders SET pdf_path=$1, raw_text=$2 WHERE id=$3`
	_, err := s.db.ExecContext(ctx, query, pdfPath, rawText, id)
	return err
}

func (s *Storage) GetUnanalyzedTenders(ctx context.Context) ([]Tender, error) {
	tenders := []Tender{}
	query := `SELECT * FROM tenders WHERE is_analyzed = FALSE ORDER BY created_at ASC`
	err := s.db.SelectContext(ctx, &tenders, query)
	return tenders, err
}

// MarkTenderAnalyzed stores the AI-enriched fields and flips is_analyzed.
// This is the single mutation a tender sees after creation.
func (s *Storage) MarkTenderAnalyzed(ctx context.Context, t *Tender) error {
	query := `
        UPDATE tenders
        SET raw_text=$1, sector=$2, estimated_budget=$3, location=$4,
            deadline=$5, is_analyzed=TRUE
        WHERE id=$6`
	_, err := s.db.ExecContext(ctx, query,
		t.RawText, t.Sector, t.EstimatedBudget, t.Location, t.Deadline, t.ID)
	if err != nil {
		return err
	}
	t.IsAnalyzed = true
	return nil
}

func (s *Storage) DeleteTender(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Analysis is the AI-derived enrichment record for a single tender.
type Analysis struct {
	ID                int       `db:"id" json:"id"`
	TenderID          int       `db:"tender_id" json:"tenderId"`
	EnterpriseID      *int      `db:"enterprise_id" json:"enterpriseId"`
	Summary           *string   `db:"summary" json:"summary"`
	Score             float64   `db:"score" json:"score"`
	Explanation       *string   `db:"explanation" json:"explanation"`
	ExtractedSector   *string   `db:"extracted_sector" json:"extractedSector"`
	ExtractedBudget   *float64  `db:"extracted_budget" json:"extractedBudget"`
	ExtractedLocation *string   `db:"extracted_location" json:"extractedLocation"`
	ExtractedDeadline *string   `db:"extracted_deadline" json:"extractedDeadline"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateAnalysis(ctx context.Context, a *Analysis) error {
	query := `
        INSERT INTO analyses
            (tender_id, enterprise_id, summary, score, explanation,
             extracted_sector, extracted_budget, extracted_location, extracted_deadline)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		a.TenderID, a.EnterpriseID, a.Summary, a.Score, a.Explanation,
		a.ExtractedSector, a.ExtractedBudget, a.ExtractedLocation, a.ExtractedDeadline).
		Scan(&a.ID, &a.CreatedAt)
	return translateError(err)
}

func (s *Storage) GetAnalysisByTender(ctx context.Context, tenderID int) (*Analysis, error) {
	a := &Analysis{}
	query := `SELECT * FROM analyses WHERE tender_id=$1`
	err := s.db.GetContext(ctx, a, query, tenderID)
	return a, err
}

// AnalyzedTender pairs an analysis with its tender, as the scorer consumes them.
type AnalyzedTender struct {
	Analysis Analysis `db:"analysis"`
	Tender   Tender   `db:"tender"`
}

func (s *Storage) GetAnalyzedTenders(ctx context.Context) ([]AnalyzedTender, error) {
	query := `
        SELECT
            a.id "analysis.id", a.tender_id "analysis.tender_id",
            a.enterprise_id "analysis.enterprise_id", a.summary "analysis.summary",
            a.score "analysis.score", a.explanation "analysis.explanation",
            a.extracted_sector "analysis.extracted_sector",
            a.extracted_budget "analysis.extracted_budget",
            a.extracted_location "analysis.extracted_location",
            a.extracted_deadline "analysis.extracted_deadline",
            a.created_at "analysis.created_at",
            t.id "tender.id", t.title "tender.title", t.description "tender.description",
            t.raw_text "tender.raw_text", t.sector "tender.sector",
            t.estimated_budget "tender.estimated_budget", t.location "tender.location",
            t.deadline "tender.deadline", t.source_url "tender.source_url",
            t.pdf_path "tender.pdf_path", t.is_analyzed "tender.is_analyzed",
            t.created_at "tender.created_at"
        FROM analyses a
        JOIN tenders t ON t.id = a.tender_id
        WHERE t.is_analyzed = TRUE
        ORDER BY a.id ASC`
	rows := []AnalyzedTender{}
	err := s.db.SelectContext(ctx, &rows, query)
	return rows, err
}

// UpdateAnalysisScore persists the result of a scoring pass for one enterprise.
func (s *Storage) UpdateAnalysisScore(ctx context.Context, analysisID, enterpriseID int, score float64, explanation string) error {
	query := `
        UPDATE analyses
        SET enterprise_id=$1, score=$2, explanation=$3
        WHERE id=$4`
	_, err := s.db.ExecContext(ctx, query, enterpriseID, score, explanation, analysisID)
	return err
}

// EmailLog is an append-only audit record of one notification send attempt.
type EmailLog struct {
	ID             int        `db:"id" json:"id"`
	EnterpriseID   int        `db:"enterprise_id" json:"enterpriseId"`
	TenderID       *int       `db:"tender_id" json:"tenderId"`
	RecipientEmail string     `db:"recipient_email" json:"recipientEmail"`
	Subject        *string    `db:"subject" json:"subject"`
	Status         string     `db:"status" json:"status"`
	ErrorMessage   *string    `db:"error_message" json:"errorMessage"`
	SentAt         *time.Time `db:"sent_at" json:"sentAt"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateEmailLog(ctx context.Context, l *EmailLog) error {
	query := `
        INSERT INTO email_logs (enterprise_id, tender_id, recipient_email, subject)
        VALUES ($1, $2, $3, $4)
        RETURNING id, status, created_at`
	return s.db.QueryRowContext(ctx, query,
		l.EnterpriseID, l.TenderID, l.RecipientEmail, l.Subject).
		Scan(&l.ID, &l.Status, &l.CreatedAt)
}

func (s *Storage) MarkEmailSent(ctx context.Context, id int) error {
	query := `UPDATE email_logs SET status='sent', sent_at=NOW() WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *Storage) MarkEmailFailed(ctx context.Context, id int, errMsg string) error {
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	query := `UPDATE email_logs SET status='failed', error_message=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, errMsg, id)
	return err
}

func (s *Storage) GetEmailLogs(ctx context.Context, enterpriseID, limit, offset int) ([]EmailLog, error) {
	logs := []EmailLog{}
	query := `
        SELECT * FROM email_logs
        WHERE enterprise_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	err := s.db.SelectContext(ctx, &logs, query, enterpriseID, limit, offset)
	return logs, err
}

// translateError maps Postgres unique violations to ErrDuplicate so callers
// can answer 409 without importing pq.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
