package service

import (
	"tillkeeper/internal/model"

	"github.com/shopspring/decimal"
)

// Reconciliation is the drawer arithmetic computed when a register closes.
type Reconciliation struct {
	OpeningCash     decimal.Decimal
	CashSales       decimal.Decimal
	CashRefunds     decimal.Decimal
	CashExpenses    decimal.Decimal
	CashDrops       decimal.Decimal
	CashAdjustments decimal.Decimal
	ExpectedCash    decimal.Decimal
	CountedCash     decimal.Decimal
	Difference      decimal.Decimal
	ShortCash       decimal.Decimal
}

// Reconcile computes expected vs counted cash for a register.
//
//	expected = opening + sales - refunds - expenses - drops + adjustments
//	difference = counted - expected
//	short = max(0, -difference)
//
// Only Cash payments count as sales. A payment's cash contribution is what was
// handed over minus change; a nil or zero cash_received falls back to amount.
// Transactions of unknown type are ignored. No rounding is applied.
func Reconcile(opening decimal.Decimal, payments []model.Payment, txs []model.RegisterTransaction, counted decimal.Decimal) Reconciliation {
	rec := Reconciliation{OpeningCash: opening, CountedCash: counted}

	for _, p := range payments {
		if p.PaymentMethod != model.PaymentCash {
			continue
		}
		received := p.Amount
		if p.CashReceived != nil && !p.CashReceived.IsZero() {
			received = *p.CashReceived
		}
		rec.CashSales = rec.CashSales.Add(received.Sub(p.Change))
	}

	for _, t := range txs {
		switch t.Type {
		case model.TransactionCashDrop:
			rec.CashDrops = rec.CashDrops.Add(t.Amount)
		case model.TransactionExpense:
			rec.CashExpenses = rec.CashExpenses.Add(t.Amount)
		case model.TransactionRefund:
			rec.CashRefunds = rec.CashRefunds.Add(t.Amount)
		case model.TransactionAdjustment:
			rec.CashAdjustments = rec.CashAdjustments.Add(t.Amount)
		}
	}

	rec.ExpectedCash = opening.
		Add(rec.CashSales).
		Sub(rec.CashRefunds).
		Sub(rec.CashExpenses).
		Sub(rec.CashDrops).
		Add(rec.CashAdjustments)
	rec.Difference = counted.Sub(rec.ExpectedCash)
	rec.ShortCash = decimal.Max(decimal.Zero, rec.Difference.Neg())
	return rec
}
