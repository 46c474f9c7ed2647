// Package memory is an in-process implementation of the register repositories.
// It backs STORE_DRIVER=memory and the package tests, and enforces the same
// one-Active-register-per-desk rule as the Postgres partial unique index.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"

	"github.com/google/uuid"
)

// Store holds registers, payments, transactions, users and branches.
type Store struct {
	mu           sync.Mutex
	registers    map[uuid.UUID]*model.CashRegister
	payments     []model.Payment
	transactions []model.RegisterTransaction
	users        map[uuid.UUID]*model.User
	branches     map[uuid.UUID]*model.Branch

	// FailWith, when set, is returned by every call. Used to simulate store outages.
	FailWith error
}

func New() *Store {
	return &Store{
		registers: make(map[uuid.UUID]*model.CashRegister),
		users:     make(map[uuid.UUID]*model.User),
		branches:  make(map[uuid.UUID]*model.Branch),
	}
}

var (
	_ repository.CashRegisterRepository = (*Store)(nil)
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.BranchRepository       = (*Branches)(nil)
)

// Users exposes the store as a repository.UserRepository.
type Users struct{ *Store }

// Branches exposes the store as a repository.BranchRepository.
type Branches struct{ *Store }

func (s *Store) Users() *Users       { return &Users{s} }
func (s *Store) Branches() *Branches { return &Branches{s} }

// ── Registers ────────────────────────────────────────────────────────────────

func (s *Store) CreateRegister(_ context.Context, r *model.CashRegister) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if r.Status == model.RegisterActive {
		for _, existing := range s.registers {
			if existing.DeskID == r.DeskID && existing.Status == model.RegisterActive {
				return repository.ErrActiveRegisterExists
			}
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	stored := *r
	stored.Branch, stored.OpenedByUser, stored.ClosedByUser = nil, nil, nil
	stored.Payments, stored.Transactions = nil, nil
	s.registers[r.ID] = &stored
	return nil
}

func (s *Store) FindRegisterByID(_ context.Context, id uuid.UUID) (*model.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	r, ok := s.registers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.hydrate(r)
	for _, p := range s.payments {
		if p.CashRegisterID == id {
			out.Payments = append(out.Payments, p)
		}
	}
	for _, t := range s.transactions {
		if t.CashRegisterID == id {
			out.Transactions = append(out.Transactions, t)
		}
	}
	return out, nil
}

func (s *Store) FindActiveByDesk(_ context.Context, deskID int, limit int) ([]model.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	regs := s.filter(func(r *model.CashRegister) bool {
		return r.DeskID == deskID && r.Status == model.RegisterActive
	}, true)
	if limit > 0 && len(regs) > limit {
		regs = regs[:limit]
	}
	return regs, nil
}

func (s *Store) FindLatestActiveByDesk(_ context.Context, deskID int) (*model.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	regs := s.filter(func(r *model.CashRegister) bool {
		return r.DeskID == deskID && r.Status == model.RegisterActive
	}, true)
	if len(regs) == 0 {
		return nil, nil
	}
	return &regs[0], nil
}

func (s *Store) ListActiveOpenedBefore(_ context.Context, before time.Time, limit int) ([]model.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	regs := s.filter(func(r *model.CashRegister) bool {
		return r.Status == model.RegisterActive && r.OpenedAt.Before(before)
	}, false)
	if limit > 0 && len(regs) > limit {
		regs = regs[:limit]
	}
	return regs, nil
}

func (s *Store) ListRegisters(_ context.Context, f repository.RegisterFilter, page, limit int) ([]model.CashRegister, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	regs := s.filter(func(r *model.CashRegister) bool {
		if f.DeskID != nil && r.DeskID != *f.DeskID {
			return false
		}
		return f.Status == "" || r.Status == f.Status
	}, true)
	total := int64(len(regs))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(regs) {
		return []model.CashRegister{}, total, nil
	}
	end := min(start+limit, len(regs))
	return regs[start:end], total, nil
}

func (s *Store) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.RegisterStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	r, ok := s.registers[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) CloseRegister(_ context.Context, id uuid.UUID, f repository.CloseFigures) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	r, ok := s.registers[id]
	if !ok || r.Status != model.RegisterActive {
		return false, nil
	}
	closedAt := f.ClosedAt
	closing, counted := f.ClosingCash, f.CountedCash
	expected, diff, short := f.ExpectedCash, f.Difference, f.ShortCash
	r.Status = model.RegisterClosed
	r.ClosedAt = &closedAt
	r.ClosingCash = &closing
	r.CountedCash = &counted
	r.ExpectedCash = &expected
	r.Difference = &diff
	r.ShortCash = &short
	r.ClosedBy = f.ClosedBy
	r.ClosedByID = f.ClosedByID
	r.ClosedByUserID = f.ClosedByUserID
	r.Notes = f.Notes
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) CreateTransaction(_ context.Context, t *model.RegisterTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	s.transactions = append(s.transactions, *t)
	return nil
}

func (s *Store) CreatePayment(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	s.payments = append(s.payments, *p)
	return nil
}

// Put stores r verbatim, bypassing the Active-per-desk rule. Tests use it to
// seed registers in arbitrary states (Cancelled, duplicated Active rows).
func (s *Store) Put(r model.CashRegister) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.registers[r.ID] = &r
	return r.ID
}

// Count returns the number of stored registers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registers)
}

// ── Users / Branches ─────────────────────────────────────────────────────────

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	u.users[user.ID] = &stored
	return nil
}

func (u *Users) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailWith != nil {
		return nil, u.FailWith
	}
	user, ok := u.users[id]
	if !ok || !user.Active {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (b *Branches) Create(_ context.Context, branch *model.Branch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	stored := *branch
	b.branches[branch.ID] = &stored
	return nil
}

func (b *Branches) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWith != nil {
		return nil, b.FailWith
	}
	branch, ok := b.branches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *branch
	return &out, nil
}

// ── Helpers (caller holds mu) ────────────────────────────────────────────────

func (s *Store) hydrate(r *model.CashRegister) *model.CashRegister {
	out := *r
	out.Payments, out.Transactions = nil, nil
	if r.BranchRefID != nil {
		if b, ok := s.branches[*r.BranchRefID]; ok {
			cp := *b
			out.Branch = &cp
		}
	}
	if r.OpenedByUserID != nil {
		if u, ok := s.users[*r.OpenedByUserID]; ok {
			cp := *u
			out.OpenedByUser = &cp
		}
	}
	if r.ClosedByUserID != nil {
		if u, ok := s.users[*r.ClosedByUserID]; ok {
			cp := *u
			out.ClosedByUser = &cp
		}
	}
	return &out
}

func (s *Store) filter(keep func(*model.CashRegister) bool, newestFirst bool) []model.CashRegister {
	out := make([]model.CashRegister, 0)
	for _, r := range s.registers {
		if keep(r) {
			out = append(out, *s.hydrate(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}
