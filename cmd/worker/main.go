// The worker runs the reconciliation sweep: a periodic safety net that picks
// up fundraisers whose donations settled without a successful inline
// reconcile pass, for example because the API crashed between the status
// write and the trigger.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"givepool/internal/adapter/repo"
	"givepool/internal/domain"
	"givepool/internal/infra"
	"givepool/internal/notify"
	"givepool/internal/reconcile"
)

type sweeper struct {
	donations domain.DonationRepository
	trigger   *reconcile.Trigger
	logger    zerolog.Logger
	interval  time.Duration
	lookback  time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger("worker", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)
	groups := repo.NewGroupRepository(pool)
	fundraisers := repo.NewFundraiserRepository(pool)
	milestones := repo.NewMilestoneRepository(pool)
	donations := repo.NewDonationRepository(pool)

	// The hub has no websocket subscribers in this process; it exists so the
	// notifier can still push milestone news to device tokens.
	hub := notify.NewHub(logger)
	defer hub.Close()
	push, err := notify.NewPush(ctx, cfg.FirebaseCredentialsFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to init push client")
	}
	notifier := notify.NewNotifier(hub, push, fundraisers, groups, users, logger)

	reconciler := reconcile.NewReconciler(milestones, donations, notifier, logger)

	s := &sweeper{
		donations: donations,
		trigger:   reconcile.NewTrigger(reconciler, logger),
		logger:    logger,
		interval:  cfg.SweepInterval,
		lookback:  cfg.SweepLookback,
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (s *sweeper) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("lookback", s.lookback).
		Msg("worker: sweep started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sweeper) sweep(ctx context.Context) {
	since := time.Now().UTC().Add(-s.lookback)
	ids, err := s.donations.SettledSince(ctx, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("worker: list settled fundraisers failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	s.logger.Info().Int("fundraisers", len(ids)).Msg("worker: sweep pass")
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := s.trigger.DonationSettled(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("fundraiser_id", id).Msg("worker: sweep reconcile failed")
		}
	}
}
