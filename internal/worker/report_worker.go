package worker

// report_worker.go
// Processes closing_report jobs: renders the Z report PDF of a closed
// register and mails it to the back office.

import (
	"context"
	"encoding/json"
	"fmt"

	"tillkeeper/internal/infra"
	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"
	"tillkeeper/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReportMailer sends a report with an attachment.
type ReportMailer interface {
	SendReport(to, subject, body, pdfPath string) error
}

type ReportWorker struct {
	repo        repository.CashRegisterRepository
	mailer      ReportMailer
	storagePath string
	recipient   string
}

// NewReportWorker wires the report worker. With a nil mailer or an empty
// recipient the PDF is still rendered but not mailed.
func NewReportWorker(repo repository.CashRegisterRepository, mailer ReportMailer, storagePath, recipient string) *ReportWorker {
	return &ReportWorker{repo: repo, mailer: mailer, storagePath: storagePath, recipient: recipient}
}

func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ClosingReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("report_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.RegisterID)
	if err != nil {
		return fmt.Errorf("report_worker: invalid register id %q: %w", payload.RegisterID, err)
	}

	reg, err := w.repo.FindRegisterByID(ctx, id)
	if err != nil {
		return fmt.Errorf("report_worker: load register: %w", err)
	}
	if reg.Status != model.RegisterClosed {
		log.Warn().Str("register_id", id.String()).Str("status", string(reg.Status)).Msg("report_worker: register not closed, skipping")
		return nil
	}

	// Totals come from the figures persisted at close; Reconcile only supplies
	// the per-bucket breakdown.
	counted := valueOrZero(reg.CountedCash)
	rec := service.Reconcile(reg.OpeningCash, reg.Payments, reg.Transactions, counted)

	path, err := infra.GenerateClosingReportPDF(infra.ClosingReport{
		Register:        reg,
		CashSales:       rec.CashSales,
		CashRefunds:     rec.CashRefunds,
		CashExpenses:    rec.CashExpenses,
		CashDrops:       rec.CashDrops,
		CashAdjustments: rec.CashAdjustments,
	}, w.storagePath)
	if err != nil {
		return err
	}

	if w.mailer == nil || w.recipient == "" {
		log.Info().Str("register_id", id.String()).Str("pdf", path).Msg("report_worker: report rendered")
		return nil
	}

	subject := fmt.Sprintf("Closing report - desk %d", reg.DeskID)
	body := fmt.Sprintf("Desk %d closed by %s.\nExpected: %s\nCounted: %s\nDifference: %s\n",
		reg.DeskID, reg.ClosedBy,
		valueOrZero(reg.ExpectedCash).StringFixed(2), counted.StringFixed(2), valueOrZero(reg.Difference).StringFixed(2))
	if err := w.mailer.SendReport(w.recipient, subject, body, path); err != nil {
		return fmt.Errorf("report_worker: send: %w", err)
	}
	log.Info().Str("register_id", id.String()).Str("to", w.recipient).Msg("report_worker: report sent")
	return nil
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
