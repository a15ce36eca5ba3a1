package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"tenderwatch/db"
	"tenderwatch/internal/scorer"
)

// RenderedMessage is a ready-to-send email body with a plain text
// alternative for clients that do not render HTML.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

// HTMLRenderer renders digest and welcome emails from templates.
type HTMLRenderer struct {
	digest  *template.Template
	welcome *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		digest:  template.Must(template.New("digest").Parse(digestHTMLTemplate)),
		welcome: template.Must(template.New("welcome").Parse(welcomeHTMLTemplate)),
	}
}

// Digests carry at most this many tenders.
const digestLimit = 10

type digestItem struct {
	Title       string
	Score       float64
	Level       string
	Color       template.CSS
	Explanation string
	URL         string
}

type digestData struct {
	Name   string
	Sector string
	Date   string
	Total  int
	High   int
	Medium int
	Items  []digestItem
}

// scoreLevel buckets a score into a label and badge color.
func scoreLevel(score float64) (string, template.CSS) {
	switch {
	case score >= 70:
		return "Strong match", "#27ae60"
	case score >= 40:
		return "Moderate", "#f39c12"
	}
	return "Weak", "#e74c3c"
}

// RenderDigest builds the daily report email for one enterprise from
// its scored tenders, highest scores first.
func (r *HTMLRenderer) RenderDigest(e *db.Enterprise, scored []scorer.ScoredTender) (*RenderedMessage, error) {
	data := digestData{
		Name:   e.Name,
		Sector: e.Sector,
		Date:   time.Now().UTC().Format("2 January 2006"),
		Total:  len(scored),
	}
	for _, s := range scored {
		if s.Score >= 70 {
			data.High++
		} else if s.Score >= 40 {
			data.Medium++
		}
	}

	top := scored
	if len(top) > digestLimit {
		top = top[:digestLimit]
	}
	var textLines []string
	for _, s := range top {
		level, color := scoreLevel(s.Score)
		data.Items = append(data.Items, digestItem{
			Title:       s.TenderTitle,
			Score:       s.Score,
			Level:       level,
			Color:       color,
			Explanation: s.Explanation,
			URL:         s.SourceURL,
		})
		textLines = append(textLines, fmt.Sprintf("- %s (Score: %.0f/100) - %s", s.TenderTitle, s.Score, s.SourceURL))
	}

	var htmlBuf bytes.Buffer
	if err := r.digest.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("render digest template: %w", err)
	}

	text := fmt.Sprintf("Hello,\n\nHere is your TenderWatch report.\n\n%s\n\n---\nTenderWatch - %s\nReply with subject \"unsubscribe\" to opt out.",
		plainSummary(textLines), time.Now().UTC().Format("02/01/2006"))

	return &RenderedMessage{
		Subject: fmt.Sprintf("TenderWatch - %d tenders for %s", len(scored), e.Name),
		Text:    text,
		HTML:    htmlBuf.String(),
	}, nil
}

func plainSummary(lines []string) string {
	if len(lines) == 0 {
		return "No matching tenders today."
	}
	return strings.Join(lines, "\n")
}

type welcomeData struct {
	Name       string
	Sector     string
	Keywords   string
	Exclusions string
}

// RenderWelcome builds the registration confirmation email.
func (r *HTMLRenderer) RenderWelcome(e *db.Enterprise) (*RenderedMessage, error) {
	data := welcomeData{
		Name:       e.Name,
		Sector:     e.Sector,
		Keywords:   orNone(e.SpecificKeywords),
		Exclusions: orNone(e.ExcludeKeywords),
	}

	var htmlBuf bytes.Buffer
	if err := r.welcome.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("render welcome template: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nYour TenderWatch registration is confirmed. Starting tomorrow you will receive a daily report with the tenders matching your profile (sector: %s).\n\nThe TenderWatch team",
		e.Name, e.Sector)

	return &RenderedMessage{
		Subject: fmt.Sprintf("Welcome to TenderWatch - %s", e.Name),
		Text:    text,
		HTML:    htmlBuf.String(),
	}, nil
}

func orNone(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "None"
	}
	return *s
}
