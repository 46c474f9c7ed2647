package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod values as recorded by the sales module.
const (
	PaymentCash     = "Cash"
	PaymentCard     = "Card"
	PaymentTransfer = "Transfer"
)

// Payment is a sale payment attached to a register. Written by the sales
// module; the register service only reads it at close time.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null"`
	// CashReceived is what the customer handed over; nil means exact amount.
	CashReceived *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Change       decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt    time.Time
}

func (Payment) TableName() string { return "register_payments" }
