package dto

import (
	"time"

	"tillkeeper/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OpenRegisterRequest. DeskID is a pointer so a missing desk_id is told apart
// from desk 0 and reported as a validation error by the service.
type OpenRegisterRequest struct {
	DeskID      *int             `json:"desk_id"`
	DeskName    string           `json:"desk_name"     validate:"max=120"`
	BranchID    string           `json:"branch_id"     validate:"max=64"`
	BranchName  string           `json:"branch_name"   validate:"max=120"`
	OpeningCash *decimal.Decimal `json:"opening_cash"`
	OpenedBy    string           `json:"opened_by"`
	OpenedByID  string           `json:"opened_by_id"`
	Branch      string           `json:"branch"        validate:"omitempty,uuid"`
	User        string           `json:"user"          validate:"omitempty,uuid"`
}

// CloseRegisterRequest. ClosingCash is the legacy alias of CountedCash.
type CloseRegisterRequest struct {
	CountedCash *decimal.Decimal `json:"counted_cash"`
	ClosingCash *decimal.Decimal `json:"closing_cash"`
	Notes       *string          `json:"notes"        validate:"omitempty,max=2000"`
	ClosedBy    string           `json:"closed_by"`
	ClosedByID  string           `json:"closed_by_id"`
	User        string           `json:"user"         validate:"omitempty,uuid"`
}

type RecordTransactionRequest struct {
	Type        string          `json:"type"        validate:"required,oneof=CashDrop Expense Refund Adjustment"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BranchResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type CashRegisterResponse struct {
	ID           string           `json:"id"`
	DeskID       int              `json:"desk_id"`
	DeskName     string           `json:"desk_name"`
	BranchID     string           `json:"branch_id,omitempty"`
	BranchName   string           `json:"branch_name,omitempty"`
	Branch       *BranchResponse  `json:"branch,omitempty"`
	Status       string           `json:"status"`
	OpenedAt     time.Time        `json:"opened_at"`
	ClosedAt     *time.Time       `json:"closed_at"`
	OpeningCash  decimal.Decimal  `json:"opening_cash"`
	ClosingCash  *decimal.Decimal `json:"closing_cash"`
	CountedCash  *decimal.Decimal `json:"counted_cash"`
	ExpectedCash *decimal.Decimal `json:"expected_cash"`
	Difference   *decimal.Decimal `json:"difference"`
	ShortCash    *decimal.Decimal `json:"short_cash"`
	OpenedBy     string           `json:"opened_by,omitempty"`
	OpenedByID   string           `json:"opened_by_id,omitempty"`
	OpenedByUser *UserResponse    `json:"opened_by_user,omitempty"`
	ClosedBy     string           `json:"closed_by,omitempty"`
	ClosedByID   string           `json:"closed_by_id,omitempty"`
	ClosedByUser *UserResponse    `json:"closed_by_user,omitempty"`
	Notes        *string          `json:"notes"`
}

type ActiveRegisterMeta struct {
	// Expired is set when the desk's register was found stale and expired by this query.
	Expired *CashRegisterResponse `json:"expired"`
}

type ActiveRegisterResponse struct {
	Data *CashRegisterResponse `json:"data"`
	Meta ActiveRegisterMeta    `json:"meta"`
}

type RegisterTransactionResponse struct {
	ID             string          `json:"id"`
	CashRegisterID string          `json:"cash_register_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	RecordedBy     string          `json:"recorded_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type RegisterHistoryResponse struct {
	Data  []CashRegisterResponse `json:"data"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
	Total int64                  `json:"total"`
}

// ─── Mapping ─────────────────────────────────────────────────────────────────

func NewCashRegisterResponse(r *model.CashRegister) *CashRegisterResponse {
	resp := &CashRegisterResponse{
		ID:           r.ID.String(),
		DeskID:       r.DeskID,
		DeskName:     r.DeskName,
		BranchID:     r.BranchID,
		BranchName:   r.BranchName,
		Status:       string(r.Status),
		OpenedAt:     r.OpenedAt,
		ClosedAt:     r.ClosedAt,
		OpeningCash:  r.OpeningCash,
		ClosingCash:  r.ClosingCash,
		CountedCash:  r.CountedCash,
		ExpectedCash: r.ExpectedCash,
		Difference:   r.Difference,
		ShortCash:    r.ShortCash,
		OpenedBy:     r.OpenedBy,
		OpenedByID:   r.OpenedByID,
		ClosedBy:     r.ClosedBy,
		ClosedByID:   r.ClosedByID,
		Notes:        r.Notes,
	}
	if r.Branch != nil {
		resp.Branch = &BranchResponse{ID: r.Branch.ID.String(), Code: r.Branch.Code, Name: r.Branch.Name}
	}
	if r.OpenedByUser != nil {
		resp.OpenedByUser = newUserResponse(r.OpenedByUser)
	}
	if r.ClosedByUser != nil {
		resp.ClosedByUser = newUserResponse(r.ClosedByUser)
	}
	return resp
}

func NewRegisterTransactionResponse(t *model.RegisterTransaction) *RegisterTransactionResponse {
	return &RegisterTransactionResponse{
		ID:             t.ID.String(),
		CashRegisterID: t.CashRegisterID.String(),
		Type:           string(t.Type),
		Amount:         t.Amount,
		Description:    t.Description,
		RecordedBy:     t.RecordedBy,
		CreatedAt:      t.CreatedAt,
	}
}

func newUserResponse(u *model.User) *UserResponse {
	return &UserResponse{ID: u.ID.String(), Username: u.Username, Name: u.Name}
}
