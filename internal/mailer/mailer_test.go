package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"tenderwatch/db"
	"tenderwatch/internal/scorer"
)

func strPtr(s string) *string { return &s }

type fakeLogStorage struct {
	logs   []db.EmailLog
	sent   []int
	failed map[int]string
}

func newFakeLogStorage() *fakeLogStorage {
	return &fakeLogStorage{failed: map[int]string{}}
}

func (f *fakeLogStorage) CreateEmailLog(ctx context.Context, l *db.EmailLog) error {
	l.ID = len(f.logs) + 1
	l.Status = "pending"
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeLogStorage) MarkEmailSent(ctx context.Context, id int) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeLogStorage) MarkEmailFailed(ctx context.Context, id int, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

type fakeDialer struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, m...)
	return nil
}

func sampleEnterprise() *db.Enterprise {
	return &db.Enterprise{
		ID:     4,
		Name:   "Acme Civil",
		Sector: "construction",
		Email:  strPtr("ops@acme.example"),
	}
}

func sampleScored() []scorer.ScoredTender {
	return []scorer.ScoredTender{
		{TenderID: 1, TenderTitle: "Bridge renewal", Score: 85, Explanation: "Sector: 100% | Budget: 100% | Zone: 100%", SourceURL: "https://portal.example.com/n/1"},
		{TenderID: 2, TenderTitle: "Office cleaning", Score: 31, Explanation: "Sector: 20% | Budget: 50% | Zone: 50%", SourceURL: "https://portal.example.com/n/2"},
	}
}

func TestSendDigestLogsSent(t *testing.T) {
	storage := newFakeLogStorage()
	dialer := &fakeDialer{}
	svc := NewServiceWithDialer(storage, dialer, "noreply@tenderwatch.example", zap.NewNop())

	err := svc.SendDigest(context.Background(), sampleEnterprise(), sampleScored())
	require.NoError(t, err)

	require.Len(t, storage.logs, 1)
	require.Equal(t, "pending", storage.logs[0].Status)
	require.Equal(t, "ops@acme.example", storage.logs[0].RecipientEmail)
	require.Equal(t, "TenderWatch - 2 tenders for Acme Civil", *storage.logs[0].Subject)
	require.Equal(t, []int{1}, storage.sent)
	require.Len(t, dialer.messages, 1)
}

func TestSendDigestLogsFailure(t *testing.T) {
	storage := newFakeLogStorage()
	dialer := &fakeDialer{err: errors.New("connection refused")}
	svc := NewServiceWithDialer(storage, dialer, "noreply@tenderwatch.example", zap.NewNop())

	err := svc.SendDigest(context.Background(), sampleEnterprise(), sampleScored())
	require.Error(t, err)

	require.Len(t, storage.logs, 1)
	require.Empty(t, storage.sent)
	require.Equal(t, "connection refused", storage.failed[1])
}

func TestSendDigestSkipsMissingEmail(t *testing.T) {
	storage := newFakeLogStorage()
	dialer := &fakeDialer{}
	svc := NewServiceWithDialer(storage, dialer, "noreply@tenderwatch.example", zap.NewNop())

	e := sampleEnterprise()
	e.Email = nil
	require.NoError(t, svc.SendDigest(context.Background(), e, sampleScored()))
	require.Empty(t, storage.logs)
	require.Empty(t, dialer.messages)
}

func TestSendWelcome(t *testing.T) {
	storage := newFakeLogStorage()
	dialer := &fakeDialer{}
	svc := NewServiceWithDialer(storage, dialer, "noreply@tenderwatch.example", zap.NewNop())

	require.NoError(t, svc.SendWelcome(context.Background(), sampleEnterprise()))
	require.Len(t, dialer.messages, 1)
	require.Equal(t, "Welcome to TenderWatch - Acme Civil", *storage.logs[0].Subject)
	require.Equal(t, []int{1}, storage.sent)
}

func TestRenderDigest(t *testing.T) {
	r := NewHTMLRenderer()

	msg, err := r.RenderDigest(sampleEnterprise(), sampleScored())
	require.NoError(t, err)
	require.Equal(t, "TenderWatch - 2 tenders for Acme Civil", msg.Subject)
	require.Contains(t, msg.HTML, "Bridge renewal")
	require.Contains(t, msg.HTML, "#27ae60") // strong match badge
	require.Contains(t, msg.HTML, "#e74c3c") // weak match badge
	require.Contains(t, msg.Text, "- Bridge renewal (Score: 85/100) - https://portal.example.com/n/1")
}

func TestRenderDigestEmpty(t *testing.T) {
	r := NewHTMLRenderer()

	msg, err := r.RenderDigest(sampleEnterprise(), nil)
	require.NoError(t, err)
	require.Contains(t, msg.HTML, "No matching tenders today.")
	require.Contains(t, msg.Text, "No matching tenders today.")
}

func TestRenderDigestCapsAtTen(t *testing.T) {
	r := NewHTMLRenderer()

	var scored []scorer.ScoredTender
	for i := 0; i < 15; i++ {
		scored = append(scored, scorer.ScoredTender{
			TenderTitle: "Tender",
			Score:       50,
			SourceURL:   "https://portal.example.com",
		})
	}

	msg, err := r.RenderDigest(sampleEnterprise(), scored)
	require.NoError(t, err)
	require.Equal(t, "TenderWatch - 15 tenders for Acme Civil", msg.Subject)

	count := 0
	for _, line := range strings.Split(msg.Text, "\n") {
		if strings.HasPrefix(line, "- ") {
			count++
		}
	}
	require.Equal(t, 10, count)
}
