package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"tenderwatch/db"
	"tenderwatch/db/migrations"
	"tenderwatch/internal/analyzer"
	"tenderwatch/internal/config"
	"tenderwatch/internal/handlers"
	"tenderwatch/internal/mailer"
	"tenderwatch/internal/pipeline"
	"tenderwatch/internal/scorer"
	"tenderwatch/internal/scraper"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	dbConn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		log.Fatal("cannot connect to database", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn, cfg.MigrationsDir); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	store := db.NewStorage(dbConn)

	var completer analyzer.Completer
	if cfg.AI.APIKey != "" {
		completer = analyzer.NewGroqClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	} else {
		log.Warn("no AI API key set, analysis runs in local mode")
	}

	scrapeSvc := scraper.NewService(store, cfg.Scrape.BaseURL, cfg.Scrape.PDFDir, cfg.Scrape.MaxPerSource, log)
	analyzeSvc := analyzer.NewService(store, completer, log)
	scoreSvc := scorer.NewService(store, log)

	mailCfg := mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if !cfg.SMTP.Enabled() {
		log.Warn("SMTP not configured, email delivery disabled")
		mailCfg.Host = ""
	}
	mailSvc := mailer.NewService(store, mailCfg, log)

	pipe := pipeline.New(store, scrapeSvc, analyzeSvc, scoreSvc, mailSvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe.Start(ctx, cfg.Scrape.Hour)

	h := handlers.NewHandler(store, scoreSvc, mailSvc, pipe, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/enterprises", func(r chi.Router) {
			r.Post("/", h.CreateEnterpriseHandler)
			r.Get("/", h.GetEnterprisesHandler)
			r.Get("/{enterpriseId}", h.GetEnterpriseHandler)
			r.Put("/{enterpriseId}", h.UpdateEnterpriseHandler)
			r.Delete("/{enterpriseId}", h.DeleteEnterpriseHandler)
			r.Get("/{enterpriseId}/email-logs", h.GetEmailLogsHandler)
		})
		r.Route("/tenders", func(r chi.Router) {
			r.Get("/", h.GetTendersHandler)
			r.Get("/{tenderId}", h.GetTenderHandler)
			r.Get("/{tenderId}/analysis", h.GetTenderAnalysisHandler)
			r.Delete("/{tenderId}", h.DeleteTenderHandler)
		})
		r.Route("/analysis", func(r chi.Router) {
			r.Get("/{enterpriseId}", h.GetAnalysisHandler)
			r.Post("/send-report/{enterpriseId}", h.SendReportHandler)
			r.Post("/send-all-reports", h.SendAllReportsHandler)
		})
		r.Post("/scrape/run", h.RunScrapeHandler)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
