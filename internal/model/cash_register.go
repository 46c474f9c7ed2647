package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for money columns (decimal(12,2)).
const MoneyScale = 2

// RegisterStatus is the lifecycle state of a cash register session.
type RegisterStatus string

const (
	RegisterActive    RegisterStatus = "Active"
	RegisterClosed    RegisterStatus = "Closed"
	RegisterExpired   RegisterStatus = "Expired"
	RegisterCancelled RegisterStatus = "Cancelled"
)

// CanTransitionTo reports whether the core may move a register from s to next.
// Only Active has outgoing transitions; Cancelled is set outside this service.
func (s RegisterStatus) CanTransitionTo(next RegisterStatus) bool {
	if s != RegisterActive {
		return false
	}
	return next == RegisterClosed || next == RegisterExpired
}

// IsTerminal reports whether no transition leaves s.
func (s RegisterStatus) IsTerminal() bool {
	return s != RegisterActive
}

func (s RegisterStatus) Valid() bool {
	switch s {
	case RegisterActive, RegisterClosed, RegisterExpired, RegisterCancelled:
		return true
	}
	return false
}

// CashRegister is one till session on a physical desk.
// Closing figures stay nil until the session is closed.
type CashRegister struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DeskID   int       `gorm:"not null;index"`
	DeskName string

	BranchID    string `gorm:"type:varchar(64)"`
	BranchName  string
	BranchRefID *uuid.UUID `gorm:"type:uuid"`
	Branch      *Branch    `gorm:"foreignKey:BranchRefID"`

	Status   RegisterStatus `gorm:"type:varchar(20);not null;default:'Active';index"`
	OpenedAt time.Time      `gorm:"not null"`
	ClosedAt *time.Time

	OpeningCash  decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	ClosingCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShortCash    *decimal.Decimal `gorm:"type:decimal(12,2)"`

	OpenedBy       string
	OpenedByID     string
	OpenedByUserID *uuid.UUID `gorm:"type:uuid"`
	OpenedByUser   *User      `gorm:"foreignKey:OpenedByUserID"`

	ClosedBy       string
	ClosedByID     string
	ClosedByUserID *uuid.UUID `gorm:"type:uuid"`
	ClosedByUser   *User      `gorm:"foreignKey:ClosedByUserID"`

	Notes *string

	Payments     []Payment             `gorm:"foreignKey:CashRegisterID"`
	Transactions []RegisterTransaction `gorm:"foreignKey:CashRegisterID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CashRegister) TableName() string { return "cash_registers" }

// IsStale reports whether an Active register has outlived the expiry window.
func (r *CashRegister) IsStale(now time.Time, window time.Duration) bool {
	return r.Status == RegisterActive && now.Sub(r.OpenedAt) > window
}
