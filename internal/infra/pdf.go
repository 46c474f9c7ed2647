package infra

// pdf.go: closing (Z) report for a cash register, rendered with go-pdf/fpdf.
// Receipt-width page with the desk header, opening/closing times, the cash
// movement breakdown and the expected / counted / difference block.
// The output file is saved to storagePath/register_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"tillkeeper/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ClosingReport is the data printed on a Z report.
type ClosingReport struct {
	Register        *model.CashRegister
	CashSales       decimal.Decimal
	CashRefunds     decimal.Decimal
	CashExpenses    decimal.Decimal
	CashDrops       decimal.Decimal
	CashAdjustments decimal.Decimal
}

// GenerateClosingReportPDF writes the report and returns the file path.
// storagePath is created if needed.
func GenerateClosingReportPDF(rep ClosingReport, storagePath string) (string, error) {
	reg := rep.Register
	if reg == nil {
		return "", fmt.Errorf("pdf: nil register")
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("register_%s.pdf", reg.ID))

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 160},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.6
	valueW := contentW * 0.4

	separator := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(2)
	}
	row := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, money(v), "", 1, "R", false, 0, "")
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Closing report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	desk := fmt.Sprintf("Desk %d", reg.DeskID)
	if reg.DeskName != "" {
		desk += " - " + reg.DeskName
	}
	pdf.CellFormat(contentW, 5, desk, "", 1, "C", false, 0, "")
	if reg.BranchName != "" {
		pdf.CellFormat(contentW, 5, reg.BranchName, "", 1, "C", false, 0, "")
	}
	separator()

	// ── Session ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Opened: "+reg.OpenedAt.Format("02/01/2006 15:04")+" by "+reg.OpenedBy, "", 1, "L", false, 0, "")
	if reg.ClosedAt != nil {
		pdf.CellFormat(contentW, 4, "Closed: "+reg.ClosedAt.Format("02/01/2006 15:04")+" by "+reg.ClosedBy, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 4, "Status: "+string(reg.Status), "", 1, "L", false, 0, "")
	separator()

	// ── Movements ────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 8)
	row("Opening cash", reg.OpeningCash)
	row("+ Cash sales", rep.CashSales)
	row("- Refunds", rep.CashRefunds)
	row("- Expenses", rep.CashExpenses)
	row("- Cash drops", rep.CashDrops)
	row("+ Adjustments", rep.CashAdjustments)
	separator()

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	row("Expected", deref(reg.ExpectedCash))
	row("Counted", deref(reg.CountedCash))
	row("Difference", deref(reg.Difference))
	row("Short", deref(reg.ShortCash))

	if reg.Notes != nil && *reg.Notes != "" {
		separator()
		pdf.SetFont("Helvetica", "I", 7)
		pdf.MultiCell(contentW, 4, "Notes: "+*reg.Notes, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
