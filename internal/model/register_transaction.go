package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies non-sale cash movements in a drawer.
type TransactionType string

const (
	TransactionCashDrop   TransactionType = "CashDrop"
	TransactionExpense    TransactionType = "Expense"
	TransactionRefund     TransactionType = "Refund"
	TransactionAdjustment TransactionType = "Adjustment"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionCashDrop, TransactionExpense, TransactionRefund, TransactionAdjustment:
		return true
	}
	return false
}

// RegisterTransaction is an immutable cash movement recorded against a register.
// Amounts are stored positive; the type decides the sign at reconciliation.
// Adjustments only add cash; a shortfall is recorded as an Expense.
type RegisterTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type           TransactionType `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description    string
	RecordedBy     string
	CreatedAt      time.Time
}

func (RegisterTransaction) TableName() string { return "register_transactions" }
