package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tillkeeper/internal/apperror"
	"tillkeeper/internal/dto"
	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultExpiryWindow is how long a register may stay Active before it is stale.
const DefaultExpiryWindow = 20 * time.Hour

// conflictScanLimit bounds the open-time lookup. Normally there is at most one
// Active register per desk; the limit leaves room for rows from lost races.
const conflictScanLimit = 10

const sweepBatchSize = 100

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// ClosingNotifier is told about every register that closes, e.g. to render
// and mail the closing report. Notification failures never fail the close.
type ClosingNotifier interface {
	RegisterClosed(ctx context.Context, registerID uuid.UUID) error
}

type CashRegisterService interface {
	Open(ctx context.Context, actor Actor, req dto.OpenRegisterRequest) (*dto.CashRegisterResponse, error)
	Close(ctx context.Context, id uuid.UUID, actor Actor, req dto.CloseRegisterRequest) (*dto.CashRegisterResponse, error)
	Active(ctx context.Context, deskID *int) (*dto.ActiveRegisterResponse, error)
	Expire(ctx context.Context, id uuid.UUID) (*dto.CashRegisterResponse, error)
	// ExpireStale expires every stale Active register and returns how many changed.
	ExpireStale(ctx context.Context) (int, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.CashRegisterResponse, error)
	History(ctx context.Context, f repository.RegisterFilter, page, limit int) (*dto.RegisterHistoryResponse, error)
	RecordTransaction(ctx context.Context, id uuid.UUID, actor Actor, req dto.RecordTransactionRequest) (*dto.RegisterTransactionResponse, error)
}

// Options tunes a CashRegisterService. Zero values pick the defaults.
type Options struct {
	ExpiryWindow time.Duration
	Now          func() time.Time
	Notifier     ClosingNotifier
}

type cashRegisterService struct {
	repo     repository.CashRegisterRepository
	users    repository.UserRepository
	branches repository.BranchRepository
	expirer  *RegisterExpirer
	now      func() time.Time
	notifier ClosingNotifier
}

func NewCashRegisterService(
	repo repository.CashRegisterRepository,
	users repository.UserRepository,
	branches repository.BranchRepository,
	opts Options,
) CashRegisterService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &cashRegisterService{
		repo:     repo,
		users:    users,
		branches: branches,
		expirer:  NewRegisterExpirer(repo, opts.ExpiryWindow),
		now:      now,
		notifier: opts.Notifier,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *cashRegisterService) Open(ctx context.Context, actor Actor, req dto.OpenRegisterRequest) (*dto.CashRegisterResponse, error) {
	if req.DeskID == nil {
		return nil, apperror.Validation("desk_id is required")
	}
	if err := checkMoneyScale("opening_cash", req.OpeningCash); err != nil {
		return nil, err
	}
	deskID := *req.DeskID
	now := s.now()

	candidates, err := s.repo.FindActiveByDesk(ctx, deskID, conflictScanLimit)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i]
		if !s.expirer.IsStale(c, now) {
			return nil, apperror.Conflict("an active register already exists for this desk; close it first")
		}
		if _, err := s.expirer.ExpireIfStale(ctx, c, now); err != nil {
			return nil, err
		}
	}

	reg := &model.CashRegister{
		DeskID:      deskID,
		DeskName:    req.DeskName,
		BranchID:    req.BranchID,
		BranchName:  req.BranchName,
		Status:      model.RegisterActive,
		OpenedAt:    now,
		OpeningCash: nonNegative(req.OpeningCash),
		OpenedBy:    firstNonEmpty(req.OpenedBy, actor.Username),
		OpenedByID:  firstNonEmpty(req.OpenedByID, actor.UserID),
	}

	if req.Branch != "" {
		branch, err := s.resolveBranch(ctx, req.Branch)
		if err != nil {
			return nil, err
		}
		reg.BranchRefID = &branch.ID
		reg.BranchName = firstNonEmpty(reg.BranchName, branch.Name)
		reg.BranchID = firstNonEmpty(reg.BranchID, branch.Code)
	}

	user, err := s.resolveUser(ctx, req.User, actor)
	if err != nil {
		return nil, err
	}
	if user != nil {
		reg.OpenedByUserID = &user.ID
		reg.OpenedBy = firstNonEmpty(req.OpenedBy, user.Name)
	}

	if err := s.repo.CreateRegister(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrActiveRegisterExists) {
			return nil, apperror.Conflict("an active register already exists for this desk; close it first")
		}
		return nil, err
	}

	log.Info().
		Str("register_id", reg.ID.String()).
		Int("desk_id", deskID).
		Str("opening_cash", reg.OpeningCash.String()).
		Str("opened_by", reg.OpenedBy).
		Msg("register opened")

	return s.load(ctx, reg.ID)
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *cashRegisterService) Close(ctx context.Context, id uuid.UUID, actor Actor, req dto.CloseRegisterRequest) (*dto.CashRegisterResponse, error) {
	if err := checkMoneyScale("counted_cash", req.CountedCash); err != nil {
		return nil, err
	}
	if err := checkMoneyScale("closing_cash", req.ClosingCash); err != nil {
		return nil, err
	}
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := closable(reg.Status); err != nil {
		return nil, err
	}

	counted := decimal.Zero
	switch {
	case req.CountedCash != nil:
		counted = *req.CountedCash
	case req.ClosingCash != nil:
		counted = *req.ClosingCash
	}

	rec := Reconcile(reg.OpeningCash, reg.Payments, reg.Transactions, counted)

	figures := repository.CloseFigures{
		ClosedAt:     s.now(),
		ClosingCash:  counted,
		CountedCash:  counted,
		ExpectedCash: rec.ExpectedCash,
		Difference:   rec.Difference,
		ShortCash:    rec.ShortCash,
		ClosedBy:     firstNonEmpty(req.ClosedBy, actor.Username),
		ClosedByID:   firstNonEmpty(req.ClosedByID, actor.UserID),
		Notes:        req.Notes,
	}
	user, err := s.resolveUser(ctx, req.User, actor)
	if err != nil {
		return nil, err
	}
	if user != nil {
		figures.ClosedByUserID = &user.ID
		figures.ClosedBy = firstNonEmpty(req.ClosedBy, user.Name)
	}

	closed, err := s.repo.CloseRegister(ctx, id, figures)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Lost a race: report the state the register moved to.
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := closable(current.Status); err != nil {
			return nil, err
		}
		return nil, apperror.InvalidState("cash register changed state while closing; retry")
	}

	log.Info().
		Str("register_id", id.String()).
		Int("desk_id", reg.DeskID).
		Str("expected_cash", rec.ExpectedCash.String()).
		Str("counted_cash", counted.String()).
		Str("difference", rec.Difference.String()).
		Str("short_cash", rec.ShortCash.String()).
		Msg("register closed")

	if s.notifier != nil {
		if err := s.notifier.RegisterClosed(ctx, id); err != nil {
			log.Error().Err(err).Str("register_id", id.String()).Msg("closing notification failed")
		}
	}

	return s.load(ctx, id)
}

// closable checks the close preconditions in order: already closed, cancelled,
// then any other non-Active state.
func closable(status model.RegisterStatus) error {
	switch status {
	case model.RegisterClosed:
		return apperror.InvalidState("cash register is already closed")
	case model.RegisterCancelled:
		return apperror.InvalidState("cash register has been cancelled")
	case model.RegisterExpired:
		return apperror.InvalidState("cash register has expired")
	}
	if !status.CanTransitionTo(model.RegisterClosed) {
		return apperror.InvalidState(fmt.Sprintf("cash register in status %q cannot be closed", status))
	}
	return nil
}

// ── Active ────────────────────────────────────────────────────────────────────

func (s *cashRegisterService) Active(ctx context.Context, deskID *int) (*dto.ActiveRegisterResponse, error) {
	if deskID == nil {
		return nil, apperror.Validation("desk_id is required")
	}
	reg, err := s.repo.FindLatestActiveByDesk(ctx, *deskID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return &dto.ActiveRegisterResponse{}, nil
	}

	now := s.now()
	if !s.expirer.IsStale(reg, now) {
		return &dto.ActiveRegisterResponse{Data: dto.NewCashRegisterResponse(reg)}, nil
	}

	expired, err := s.expirer.ExpireIfStale(ctx, reg, now)
	if err != nil {
		return nil, err
	}
	if !expired {
		// Closed or cancelled between the read and the expiry attempt.
		return &dto.ActiveRegisterResponse{}, nil
	}
	return &dto.ActiveRegisterResponse{
		Meta: dto.ActiveRegisterMeta{Expired: dto.NewCashRegisterResponse(reg)},
	}, nil
}

// ── Expire ────────────────────────────────────────────────────────────────────

func (s *cashRegisterService) Expire(ctx context.Context, id uuid.UUID) (*dto.CashRegisterResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reg.Status.CanTransitionTo(model.RegisterExpired) {
		return nil, apperror.InvalidState("only active registers can be expired")
	}
	changed, err := s.repo.TransitionStatus(ctx, id, model.RegisterActive, model.RegisterExpired)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperror.InvalidState("only active registers can be expired")
	}
	log.Info().Str("register_id", id.String()).Int("desk_id", reg.DeskID).Msg("register expired")
	return s.load(ctx, id)
}

func (s *cashRegisterService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.expirer.Window())
	total := 0
	for {
		regs, err := s.repo.ListActiveOpenedBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return total, err
		}
		changed := 0
		for i := range regs {
			ok, err := s.expirer.ExpireIfStale(ctx, &regs[i], s.now())
			if err != nil {
				return total, err
			}
			if ok {
				changed++
			}
		}
		total += changed
		// A full batch where nothing changed would loop forever.
		if len(regs) < sweepBatchSize || changed == 0 {
			return total, nil
		}
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *cashRegisterService) Get(ctx context.Context, id uuid.UUID) (*dto.CashRegisterResponse, error) {
	return s.load(ctx, id)
}

func (s *cashRegisterService) History(ctx context.Context, f repository.RegisterFilter, page, limit int) (*dto.RegisterHistoryResponse, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown status %q", f.Status))
	}
	regs, total, err := s.repo.ListRegisters(ctx, f, page, limit)
	if err != nil {
		return nil, err
	}
	out := &dto.RegisterHistoryResponse{
		Data:  make([]dto.CashRegisterResponse, 0, len(regs)),
		Page:  page,
		Limit: limit,
		Total: total,
	}
	for i := range regs {
		out.Data = append(out.Data, *dto.NewCashRegisterResponse(&regs[i]))
	}
	return out, nil
}

// ── RecordTransaction ─────────────────────────────────────────────────────────
// Drops, expenses, refunds and adjustments. Transactions are immutable.

func (s *cashRegisterService) RecordTransaction(ctx context.Context, id uuid.UUID, actor Actor, req dto.RecordTransactionRequest) (*dto.RegisterTransactionResponse, error) {
	if !model.TransactionType(req.Type).Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction type %q", req.Type))
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	if err := checkMoneyScale("amount", &req.Amount); err != nil {
		return nil, err
	}
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegisterActive {
		return nil, apperror.InvalidState("transactions can only be recorded on an active register")
	}
	expired, err := s.expirer.ExpireIfStale(ctx, reg, s.now())
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apperror.InvalidState("cash register has expired")
	}

	tx := &model.RegisterTransaction{
		CashRegisterID: id,
		Type:           model.TransactionType(req.Type),
		Amount:         req.Amount,
		Description:    req.Description,
		RecordedBy:     firstNonEmpty(actor.Username, actor.UserID),
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	log.Info().
		Str("register_id", id.String()).
		Str("type", req.Type).
		Str("amount", req.Amount.String()).
		Msg("register transaction recorded")
	return dto.NewRegisterTransactionResponse(tx), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cashRegisterService) find(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	reg, err := s.repo.FindRegisterByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("cash register not found")
	}
	return reg, err
}

func (s *cashRegisterService) load(ctx context.Context, id uuid.UUID) (*dto.CashRegisterResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCashRegisterResponse(reg), nil
}

func (s *cashRegisterService) resolveBranch(ctx context.Context, raw string) (*model.Branch, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation("branch must be a valid id")
	}
	branch, err := s.branches.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Validation("branch not found")
	}
	return branch, err
}

// resolveUser loads the user relation named in the request, or the actor's own
// account when the request names none. An actor without a user record is not
// an error; an explicit unknown user is.
func (s *cashRegisterService) resolveUser(ctx context.Context, raw string, actor Actor) (*model.User, error) {
	explicit := raw != ""
	if !explicit {
		raw = actor.UserID
	}
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if explicit {
			return nil, apperror.Validation("user must be a valid id")
		}
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if explicit {
			return nil, apperror.Validation("user not found")
		}
		return nil, nil
	}
	return user, err
}

// checkMoneyScale rejects amounts with more fractional digits than the store
// keeps, so both drivers hold exactly what was reconciled. Trailing zeros are
// fine: 1.500 is accepted.
func checkMoneyScale(field string, d *decimal.Decimal) error {
	if d == nil || d.Equal(d.Round(model.MoneyScale)) {
		return nil
	}
	return apperror.Validation(fmt.Sprintf("%s must have at most %d decimal places", field, model.MoneyScale))
}

func nonNegative(d *decimal.Decimal) decimal.Decimal {
	if d == nil || d.IsNegative() {
		return decimal.Zero
	}
	return *d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
