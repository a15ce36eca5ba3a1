package scorer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"tenderwatch/db"
)

// Storage is the subset of the database layer the scorer needs.
type Storage interface {
	GetAnalyzedTenders(ctx context.Context) ([]db.AnalyzedTender, error)
	UpdateAnalysisScore(ctx context.Context, analysisID, enterpriseID int, score float64, explanation string) error
}

// ScoredTender is one row of a scoring pass, ready for ranking and
// inclusion in a digest email.
type ScoredTender struct {
	TenderID    int       `json:"tenderId"`
	TenderTitle string    `json:"tenderTitle"`
	Score       float64   `json:"score"`
	Details     Breakdown `json:"details"`
	Explanation string    `json:"explanation"`
	SourceURL   string    `json:"sourceUrl"`
}

type Service struct {
	storage Storage
	log     *zap.Logger
}

func NewService(storage Storage, log *zap.Logger) *Service {
	return &Service{storage: storage, log: log}
}

// ScoreAllForEnterprise scores every analyzed tender against one
// enterprise, persists each result on its analysis row, and returns
// the list sorted by score descending.
func (s *Service) ScoreAllForEnterprise(ctx context.Context, e *db.Enterprise) ([]ScoredTender, error) {
	rows, err := s.storage.GetAnalyzedTenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load analyzed tenders: %w", err)
	}

	results := make([]ScoredTender, 0, len(rows))
	for i := range rows {
		analysis := &rows[i].Analysis
		tender := &rows[i].Tender

		res := Score(e, tender, analysis)
		if err := s.storage.UpdateAnalysisScore(ctx, analysis.ID, e.ID, res.Score, res.Explanation); err != nil {
			return nil, fmt.Errorf("persist score for analysis %d: %w", analysis.ID, err)
		}

		results = append(results, ScoredTender{
			TenderID:    tender.ID,
			TenderTitle: tender.Title,
			Score:       res.Score,
			Details:     res.Details,
			Explanation: res.Explanation,
			SourceURL:   tender.SourceURL,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	s.log.Info("scoring pass complete",
		zap.String("enterprise", e.Name),
		zap.Int("tenders", len(results)))
	return results, nil
}
