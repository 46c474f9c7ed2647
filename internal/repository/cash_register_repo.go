package repository

import (
	"context"
	"errors"
	"time"

	"tillkeeper/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	uniqueViolation        = "23505"
	activeDeskConstraint   = "uq_cash_registers_active_desk"
	defaultHistoryPageSize = 20
)

// RegisterFilter narrows History queries. Zero values mean "any".
type RegisterFilter struct {
	DeskID *int
	Status model.RegisterStatus
}

// CloseFigures are the values persisted by a close.
type CloseFigures struct {
	ClosedAt       time.Time
	ClosingCash    decimal.Decimal
	CountedCash    decimal.Decimal
	ExpectedCash   decimal.Decimal
	Difference     decimal.Decimal
	ShortCash      decimal.Decimal
	ClosedBy       string
	ClosedByID     string
	ClosedByUserID *uuid.UUID
	Notes          *string
}

type CashRegisterRepository interface {
	CreateRegister(ctx context.Context, r *model.CashRegister) error
	// FindRegisterByID loads the register with payments, transactions and relations.
	FindRegisterByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	FindActiveByDesk(ctx context.Context, deskID int, limit int) ([]model.CashRegister, error)
	// FindLatestActiveByDesk returns nil, nil when the desk has no Active register.
	FindLatestActiveByDesk(ctx context.Context, deskID int) (*model.CashRegister, error)
	ListActiveOpenedBefore(ctx context.Context, before time.Time, limit int) ([]model.CashRegister, error)
	ListRegisters(ctx context.Context, f RegisterFilter, page, limit int) ([]model.CashRegister, int64, error)
	// TransitionStatus moves id from -> to only if it is still in from.
	// It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.RegisterStatus) (bool, error)
	// CloseRegister writes the closing figures if the register is still Active.
	CloseRegister(ctx context.Context, id uuid.UUID, f CloseFigures) (bool, error)
	CreateTransaction(ctx context.Context, t *model.RegisterTransaction) error
	CreatePayment(ctx context.Context, p *model.Payment) error
}

type cashRegisterRepo struct{ db *gorm.DB }

func NewCashRegisterRepository(db *gorm.DB) CashRegisterRepository {
	return &cashRegisterRepo{db: db}
}

func (r *cashRegisterRepo) CreateRegister(ctx context.Context, reg *model.CashRegister) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(reg).Error
	if isActiveDeskViolation(err) {
		return ErrActiveRegisterExists
	}
	return err
}

func (r *cashRegisterRepo) FindRegisterByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	err := r.withRelations(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *cashRegisterRepo) FindActiveByDesk(ctx context.Context, deskID int, limit int) ([]model.CashRegister, error) {
	var regs []model.CashRegister
	err := r.db.WithContext(ctx).
		Where("desk_id = ? AND status = ?", deskID, model.RegisterActive).
		Order("opened_at DESC").
		Limit(limit).
		Find(&regs).Error
	return regs, err
}

func (r *cashRegisterRepo) FindLatestActiveByDesk(ctx context.Context, deskID int) (*model.CashRegister, error) {
	var regs []model.CashRegister
	err := r.withRelations(ctx).
		Where("desk_id = ? AND status = ?", deskID, model.RegisterActive).
		Order("opened_at DESC").
		Limit(1).
		Find(&regs).Error
	if err != nil || len(regs) == 0 {
		return nil, err
	}
	return &regs[0], nil
}

func (r *cashRegisterRepo) ListActiveOpenedBefore(ctx context.Context, before time.Time, limit int) ([]model.CashRegister, error) {
	var regs []model.CashRegister
	err := r.db.WithContext(ctx).
		Where("status = ? AND opened_at < ?", model.RegisterActive, before).
		Order("opened_at ASC").
		Limit(limit).
		Find(&regs).Error
	return regs, err
}

func (r *cashRegisterRepo) ListRegisters(ctx context.Context, f RegisterFilter, page, limit int) ([]model.CashRegister, int64, error) {
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	if page < 1 {
		page = 1
	}
	filter := func(db *gorm.DB) *gorm.DB {
		if f.DeskID != nil {
			db = db.Where("desk_id = ?", *f.DeskID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.CashRegister{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []model.CashRegister
	err := r.withRelations(ctx).Scopes(filter).
		Order("opened_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&regs).Error
	return regs, total, err
}

func (r *cashRegisterRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.RegisterStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CashRegister{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	return res.RowsAffected == 1, res.Error
}

func (r *cashRegisterRepo) CloseRegister(ctx context.Context, id uuid.UUID, f CloseFigures) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CashRegister{}).
		Where("id = ? AND status = ?", id, model.RegisterActive).
		Updates(map[string]any{
			"status":            model.RegisterClosed,
			"closed_at":         f.ClosedAt,
			"closing_cash":      f.ClosingCash,
			"counted_cash":      f.CountedCash,
			"expected_cash":     f.ExpectedCash,
			"difference":        f.Difference,
			"short_cash":        f.ShortCash,
			"closed_by":         f.ClosedBy,
			"closed_by_id":      f.ClosedByID,
			"closed_by_user_id": f.ClosedByUserID,
			"notes":             f.Notes,
			"updated_at":        time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *cashRegisterRepo) CreateTransaction(ctx context.Context, t *model.RegisterTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *cashRegisterRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *cashRegisterRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Branch").Preload("OpenedByUser").Preload("ClosedByUser")
}

func isActiveDeskViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeDeskConstraint
}
