package worker

// expiry_cron.go
// Background goroutine that expires stale Active registers on a fixed tick.
// Every replica runs the ticker; a Redis SETNX lock makes one of them sweep.

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const expiryLockKey = "locks:register_expiry"

// StaleExpirer is the service command run by the sweep.
type StaleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiryCronConfig holds all dependencies for the sweep goroutine.
type ExpiryCronConfig struct {
	Expirer  StaleExpirer
	RDB      *redis.Client
	Interval time.Duration
	// Owner identifies this replica in the lock value; defaults to the hostname.
	Owner string
}

// StartExpiryCron launches the sweep goroutine. It returns immediately and
// stops when ctx is cancelled. A non-positive interval disables the sweep.
func StartExpiryCron(ctx context.Context, cfg ExpiryCronConfig) {
	if cfg.Interval <= 0 {
		log.Info().Msg("expiry_cron: disabled")
		return
	}
	if cfg.Owner == "" {
		cfg.Owner, _ = os.Hostname()
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("expiry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_cron: shutting down")
				return
			case <-ticker.C:
				runSweep(ctx, cfg)
			}
		}
	}()
}

// runSweep performs one tick and reports how many registers were expired.
// It returns -1 when another replica holds the lock.
func runSweep(ctx context.Context, cfg ExpiryCronConfig) int {
	if cfg.RDB != nil {
		acquired, err := cfg.RDB.SetNX(ctx, expiryLockKey, cfg.Owner, cfg.Interval).Result()
		if err != nil {
			log.Error().Err(err).Msg("expiry_cron: failed to acquire lock")
			return -1
		}
		if !acquired {
			log.Debug().Msg("expiry_cron: another instance holds the lock, skipping tick")
			return -1
		}
	}

	n, err := cfg.Expirer.ExpireStale(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("expiry_cron: sweep failed")
		return n
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("expiry_cron: stale registers expired")
	}
	return n
}
