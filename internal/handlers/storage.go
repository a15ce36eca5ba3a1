package handlers

import (
	"context"

	"tenderwatch/db"
	"tenderwatch/internal/pipeline"
	"tenderwatch/internal/scorer"
)

type StorageInterface interface {
	Ping(ctx context.Context) error

	CreateEnterprise(ctx context.Context, e *db.Enterprise) error
	GetEnterprise(ctx context.Context, id int) (*db.Enterprise, error)
	GetEnterprises(ctx context.Context, sector string, limit, offset int) ([]db.Enterprise, error)
	UpdateEnterprise(ctx context.Context, e *db.Enterprise) error
	DeleteEnterprise(ctx context.Context, id int) error

	GetTender(ctx context.Context, id int) (*db.Tender, error)
	GetTenders(ctx context.Context, filter db.TenderFilter, limit, offset int) ([]db.Tender, error)
	CountTenders(ctx context.Context, filter db.TenderFilter) (int, error)
	DeleteTender(ctx context.Context, id int) error

	GetAnalysisByTender(ctx context.Context, tenderID int) (*db.Analysis, error)
	GetEmailLogs(ctx context.Context, enterpriseID, limit, offset int) ([]db.EmailLog, error)
}

type ScorerInterface interface {
	ScoreAllForEnterprise(ctx context.Context, e *db.Enterprise) ([]scorer.ScoredTender, error)
}

type MailerInterface interface {
	SendWelcome(ctx context.Context, e *db.Enterprise) error
	SendDigest(ctx context.Context, e *db.Enterprise, scored []scorer.ScoredTender) error
}

type PipelineInterface interface {
	Run(ctx context.Context) error
	SendAllReports(ctx context.Context) (pipeline.ReportResults, error)
}
