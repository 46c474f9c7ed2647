package infra

import (
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tillkeeper/internal/config"
	"tillkeeper/internal/model"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedRegister() *model.CashRegister {
	opened := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	closed := opened.Add(9 * time.Hour)
	expected := decimal.RequireFromString("130")
	counted := decimal.RequireFromString("125")
	diff := decimal.RequireFromString("-5")
	short := decimal.RequireFromString("5")
	return &model.CashRegister{
		ID:           uuid.New(),
		DeskID:       3,
		DeskName:     "Front desk",
		BranchName:   "Centro",
		Status:       model.RegisterClosed,
		OpenedAt:     opened,
		ClosedAt:     &closed,
		OpeningCash:  decimal.NewFromInt(100),
		ExpectedCash: &expected,
		CountedCash:  &counted,
		ClosingCash:  &counted,
		Difference:   &diff,
		ShortCash:    &short,
		OpenedBy:     "ana",
		ClosedBy:     "ana",
	}
}

func TestGenerateClosingReportPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	reg := closedRegister()

	path, err := GenerateClosingReportPDF(ClosingReport{
		Register:     reg,
		CashSales:    decimal.NewFromInt(50),
		CashExpenses: decimal.NewFromInt(20),
	}, dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "register_"+reg.ID.String()+".pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 100)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerateClosingReportPDF_NilRegister(t *testing.T) {
	_, err := GenerateClosingReportPDF(ClosingReport{}, t.TempDir())
	assert.Error(t, err)
}

func TestMailer_SendReportThroughBreaker(t *testing.T) {
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "reports@example.com"}
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2})
	m := NewMailer(cfg, cb)

	var sent []*email.Email
	var addr string
	m.send = func(e *email.Email, a string, _ smtp.Auth) error {
		sent = append(sent, e)
		addr = a
		return nil
	}

	pdfPath, err := GenerateClosingReportPDF(ClosingReport{Register: closedRegister()}, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.SendReport("office@example.com", "Closing report", "body", pdfPath))
	require.Len(t, sent, 1)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, []string{"office@example.com"}, sent[0].To)
	assert.Len(t, sent[0].Attachments, 1)

	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("421 service not available") }
	assert.Error(t, m.SendReport("office@example.com", "s", "b", ""))
	assert.Error(t, m.SendReport("office@example.com", "s", "b", ""))
	assert.Equal(t, CBOpen, m.BreakerState())
	assert.ErrorIs(t, m.SendReport("office@example.com", "s", "b", ""), ErrCircuitOpen)
}

func TestMailer_MissingAttachment(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "localhost", SMTPPort: 25}, nil)
	m.send = func(*email.Email, string, smtp.Auth) error { return nil }

	err := m.SendReport("x@example.com", "s", "b", filepath.Join(t.TempDir(), "missing.pdf"))

	assert.ErrorContains(t, err, "attach PDF")
}
