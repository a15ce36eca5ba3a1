// Package mailer sends tender digests and account emails over SMTP
// and records every attempt in the email log.
package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"tenderwatch/db"
	"tenderwatch/internal/scorer"
)

// Storage is the subset of the database layer the mailer needs.
type Storage interface {
	CreateEmailLog(ctx context.Context, l *db.EmailLog) error
	MarkEmailSent(ctx context.Context, id int) error
	MarkEmailFailed(ctx context.Context, id int, errMsg string) error
}

// Dialer sends a composed message. Satisfied by gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds the SMTP settings for outbound mail.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Service struct {
	storage  Storage
	renderer *HTMLRenderer
	dialer   Dialer
	from     string
	log      *zap.Logger
}

// NewService builds the SMTP mailer. With no host configured the
// service stays up but skips every send.
func NewService(storage Storage, cfg Config, log *zap.Logger) *Service {
	var dialer Dialer
	if cfg.Host != "" {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		d.Timeout = 30 * time.Second
		dialer = d
	}
	return &Service{
		storage:  storage,
		renderer: NewHTMLRenderer(),
		dialer:   dialer,
		from:     cfg.From,
		log:      log,
	}
}

// NewServiceWithDialer injects a custom dialer, used by tests.
func NewServiceWithDialer(storage Storage, dialer Dialer, from string, log *zap.Logger) *Service {
	return &Service{
		storage:  storage,
		renderer: NewHTMLRenderer(),
		dialer:   dialer,
		from:     from,
		log:      log,
	}
}

// SendDigest emails the scored tender report to one enterprise. An
// enterprise without an email address is skipped silently. The send
// is recorded in the email log either way: pending first, then sent
// or failed.
func (s *Service) SendDigest(ctx context.Context, e *db.Enterprise, scored []scorer.ScoredTender) error {
	if e.Email == nil || *e.Email == "" {
		return nil
	}

	msg, err := s.renderer.RenderDigest(e, scored)
	if err != nil {
		return err
	}
	return s.send(ctx, e, nil, msg)
}

// SendWelcome emails the registration confirmation.
func (s *Service) SendWelcome(ctx context.Context, e *db.Enterprise) error {
	if e.Email == nil || *e.Email == "" {
		return nil
	}

	msg, err := s.renderer.RenderWelcome(e)
	if err != nil {
		return err
	}
	return s.send(ctx, e, nil, msg)
}

func (s *Service) send(ctx context.Context, e *db.Enterprise, tenderID *int, msg *RenderedMessage) error {
	if s.dialer == nil {
		s.log.Warn("smtp not configured, skipping email",
			zap.String("recipient", *e.Email))
		return nil
	}

	entry := &db.EmailLog{
		EnterpriseID:   e.ID,
		TenderID:       tenderID,
		RecipientEmail: *e.Email,
		Subject:        &msg.Subject,
	}
	if err := s.storage.CreateEmailLog(ctx, entry); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", *e.Email)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		if markErr := s.storage.MarkEmailFailed(ctx, entry.ID, err.Error()); markErr != nil {
			s.log.Error("email log update failed", zap.Error(markErr))
		}
		s.log.Error("email send failed",
			zap.String("to", *e.Email),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("send to %s: %w", *e.Email, err)
	}

	if err := s.storage.MarkEmailSent(ctx, entry.ID); err != nil {
		s.log.Error("email log update failed", zap.Error(err))
	}
	s.log.Info("email sent",
		zap.String("to", *e.Email),
		zap.String("subject", msg.Subject))
	return nil
}
