package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"
	"tillkeeper/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to, subject, body, pdfPath string
	err                        error
}

func (m *fakeMailer) SendReport(to, subject, body, pdfPath string) error {
	m.to, m.subject, m.body, m.pdfPath = to, subject, body, pdfPath
	return m.err
}

func closedRegister(t *testing.T, store *memory.Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := store.Put(model.CashRegister{
		DeskID: 4, Status: model.RegisterActive, OpenedAt: time.Now().Add(-8 * time.Hour),
		OpeningCash: decimal.NewFromInt(100), OpenedBy: "ana",
	})
	require.NoError(t, store.CreatePayment(ctx, &model.Payment{CashRegisterID: id, Amount: decimal.NewFromInt(50), PaymentMethod: model.PaymentCash}))
	ok, err := store.CloseRegister(ctx, id, repository.CloseFigures{
		ClosedAt:     time.Now(),
		CountedCash:  decimal.NewFromInt(145),
		ClosingCash:  decimal.NewFromInt(145),
		ExpectedCash: decimal.NewFromInt(150),
		Difference:   decimal.NewFromInt(-5),
		ShortCash:    decimal.NewFromInt(5),
		ClosedBy:     "ana",
	})
	require.NoError(t, err)
	require.True(t, ok)
	return id
}

func payloadFor(t *testing.T, id string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ClosingReportPayload{RegisterID: id})
	require.NoError(t, err)
	return raw
}

func TestReportWorker_RendersAndMails(t *testing.T) {
	store := memory.New()
	id := closedRegister(t, store)
	mailer := &fakeMailer{}
	w := NewReportWorker(store, mailer, t.TempDir(), "office@example.com")

	require.NoError(t, w.Process(context.Background(), payloadFor(t, id.String())))

	assert.Equal(t, "office@example.com", mailer.to)
	assert.Equal(t, "Closing report - desk 4", mailer.subject)
	assert.Contains(t, mailer.body, "Expected: 150.00")
	assert.Contains(t, mailer.body, "Difference: -5.00")
	_, err := os.Stat(mailer.pdfPath)
	assert.NoError(t, err)
}

func TestReportWorker_WithoutMailerOnlyRenders(t *testing.T) {
	store := memory.New()
	id := closedRegister(t, store)
	dir := t.TempDir()

	require.NoError(t, NewReportWorker(store, nil, dir, "").Process(context.Background(), payloadFor(t, id.String())))

	_, err := os.Stat(dir + "/register_" + id.String() + ".pdf")
	assert.NoError(t, err)
}

func TestReportWorker_SkipsRegistersThatAreNotClosed(t *testing.T) {
	store := memory.New()
	id := store.Put(model.CashRegister{DeskID: 1, Status: model.RegisterExpired, OpenedAt: time.Now()})
	mailer := &fakeMailer{}

	require.NoError(t, NewReportWorker(store, mailer, t.TempDir(), "office@example.com").Process(context.Background(), payloadFor(t, id.String())))

	assert.Empty(t, mailer.to)
}

func TestReportWorker_Errors(t *testing.T) {
	store := memory.New()
	id := closedRegister(t, store)
	ctx := context.Background()

	w := NewReportWorker(store, &fakeMailer{err: errors.New("circuit breaker is open")}, t.TempDir(), "office@example.com")
	assert.ErrorContains(t, w.Process(ctx, payloadFor(t, id.String())), "send")

	assert.Error(t, w.Process(ctx, payloadFor(t, "not-a-uuid")))
	assert.Error(t, w.Process(ctx, payloadFor(t, uuid.NewString())))
	assert.Error(t, w.Process(ctx, json.RawMessage(`[]`)))
}

func TestReportWorker_UsesFiguresStoredAtClose(t *testing.T) {
	store := memory.New()
	id := closedRegister(t, store)
	// A cash payment attached after the close must not change the report totals.
	require.NoError(t, store.CreatePayment(context.Background(), &model.Payment{
		CashRegisterID: id, Amount: decimal.NewFromInt(30), PaymentMethod: model.PaymentCash,
	}))
	mailer := &fakeMailer{}

	require.NoError(t, NewReportWorker(store, mailer, t.TempDir(), "office@example.com").Process(context.Background(), payloadFor(t, id.String())))

	assert.Contains(t, mailer.body, "Expected: 150.00")
	assert.Contains(t, mailer.body, "Counted: 145.00")
	assert.Contains(t, mailer.body, "Difference: -5.00")
}
