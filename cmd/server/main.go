package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillkeeper/internal/config"
	"tillkeeper/internal/infra"
	"tillkeeper/internal/repository"
	"tillkeeper/internal/repository/memory"
	"tillkeeper/internal/router"
	"tillkeeper/internal/service"
	"tillkeeper/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var (
		db       *gorm.DB
		repo     repository.CashRegisterRepository
		users    repository.UserRepository
		branches repository.BranchRepository
	)
	switch cfg.StoreDriver {
	case "memory":
		store := memory.New()
		repo, users, branches = store, store.Users(), store.Branches()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		db, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		repo = repository.NewCashRegisterRepository(db)
		users = repository.NewUserRepository(db)
		branches = repository.NewBranchRepository(db)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := service.Options{ExpiryWindow: cfg.ExpiryWindow()}

	// Closing reports run in the background when Redis is available.
	// Handlers are wired here, at the composition root.
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	if rdb != nil {
		var mailer worker.ReportMailer
		if cfg.ReportsEnabled() {
			mailer = infra.NewMailer(cfg, smtpCB)
		}
		opts.Notifier = worker.NewDispatcher(rdb)

		pool := worker.NewPool(rdb, map[string]worker.JobHandler{
			worker.JobClosingReport: worker.NewReportWorker(repo, mailer, cfg.PDFStoragePath, cfg.ReportEmailTo),
		})
		pool.Start(ctx, cfg.WorkerPoolSize)
	}

	registers := service.NewCashRegisterService(repo, users, branches, opts)

	// Without Redis the sweep runs unlocked, which is fine for a single replica.
	worker.StartExpiryCron(ctx, worker.ExpiryCronConfig{
		Expirer:  registers,
		RDB:      rdb,
		Interval: cfg.SweepInterval(),
	})

	r, err := router.New(cfg, router.Deps{
		Registers:   registers,
		DB:          db,
		RDB:         rdb,
		SMTPBreaker: smtpCB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreDriver).Msgf("tillkeeper listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
