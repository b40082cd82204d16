package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"givepool/internal/adapter/repo"
	"givepool/internal/authz"
	"givepool/internal/http/handlers"
	"givepool/internal/http/httpapi"
	"givepool/internal/infra"
	"givepool/internal/infra/geoip"
	"givepool/internal/notify"
	"givepool/internal/payments"
	"givepool/internal/reconcile"
	"givepool/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger("api", cfg.AppEnv)

	if err := infra.RunMigrations(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	users := repo.NewUserRepository(dbpool)
	groups := repo.NewGroupRepository(dbpool)
	fundraisers := repo.NewFundraiserRepository(dbpool)
	milestones := repo.NewMilestoneRepository(dbpool)
	donations := repo.NewDonationRepository(dbpool)
	links := repo.NewShareLinkRepository(dbpool)
	stats := repo.NewStatsRepository(dbpool)
	locator := repo.NewResourceLocator(dbpool)

	hub := notify.NewHub(logger)
	defer hub.Close()
	push, err := notify.NewPush(ctx, cfg.FirebaseCredentialsFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init push client")
	}
	notifier := notify.NewNotifier(hub, push, fundraisers, groups, users, logger)

	reconciler := reconcile.NewReconciler(milestones, donations, notifier, logger)
	trigger := reconcile.NewTrigger(reconciler, logger)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	defer resolver.Close()

	store, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file storage")
	}

	app := &handlers.App{
		Users:       users,
		Groups:      groups,
		Fundraisers: fundraisers,
		Milestones:  milestones,
		Donations:   donations,
		Links:       links,
		Stats:       stats,

		Authz:    authz.NewEngine(groups, locator, logger),
		Trigger:  trigger,
		Hub:      hub,
		Feed:     notifier,
		Payments: payments.NewClient(payments.Options{APIKey: cfg.PaymentAPIKey, BaseURL: cfg.PaymentBaseURL, Logger: logger}),
		Store:    store,

		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		WebhookSecret:  cfg.PaymentWebhookSecret,
		StorageBaseURL: cfg.StorageBaseURL,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		DefaultLocale:      cfg.DefaultLocale,
		CountryLookup:      resolver.CountryCode,
		RateLimitPerMinute: cfg.RateLimitPerMin,
		StaticDir:          cfg.StorageDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
