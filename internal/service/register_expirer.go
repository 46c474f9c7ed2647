package service

import (
	"context"
	"time"

	"tillkeeper/internal/model"
	"tillkeeper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegisterExpirer performs the Active → Expired transition. It is shared by the
// lazy paths (active query, open conflict scan), the explicit expire command
// and the periodic sweep.
type RegisterExpirer struct {
	repo   repository.CashRegisterRepository
	window time.Duration
}

func NewRegisterExpirer(repo repository.CashRegisterRepository, window time.Duration) *RegisterExpirer {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	return &RegisterExpirer{repo: repo, window: window}
}

// Window returns the age after which an Active register is stale.
func (e *RegisterExpirer) Window() time.Duration { return e.window }

// IsStale reports whether r should be expired at now.
func (e *RegisterExpirer) IsStale(r *model.CashRegister, now time.Time) bool {
	return r.IsStale(now, e.window)
}

// Expire moves id from Active to Expired. It is idempotent: a register that is
// already Expired reports true without writing. It reports false when the
// register is in any other state.
func (e *RegisterExpirer) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	changed, err := e.repo.TransitionStatus(ctx, id, model.RegisterActive, model.RegisterExpired)
	if err != nil {
		return false, err
	}
	if changed {
		log.Info().Str("register_id", id.String()).Msg("register expired")
		return true, nil
	}
	current, err := e.repo.FindRegisterByID(ctx, id)
	if err != nil {
		return false, err
	}
	return current.Status == model.RegisterExpired, nil
}

// ExpireIfStale expires r when it is stale at now and reports whether r is
// now Expired. r.Status is updated in place on success.
func (e *RegisterExpirer) ExpireIfStale(ctx context.Context, r *model.CashRegister, now time.Time) (bool, error) {
	if !e.IsStale(r, now) {
		return false, nil
	}
	expired, err := e.Expire(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if expired {
		r.Status = model.RegisterExpired
		log.Warn().
			Str("register_id", r.ID.String()).
			Int("desk_id", r.DeskID).
			Time("opened_at", r.OpenedAt).
			Msg("stale register auto-expired")
	}
	return expired, nil
}
