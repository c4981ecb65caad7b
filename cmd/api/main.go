package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/gudangmitra/gudang-mitra-backend/api/routes"
	"github.com/gudangmitra/gudang-mitra-backend/internal/auth"
	"github.com/gudangmitra/gudang-mitra-backend/internal/categories"
	"github.com/gudangmitra/gudang-mitra-backend/internal/comments"
	"github.com/gudangmitra/gudang-mitra-backend/internal/inventory"
	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/auth/session"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/env"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/migrate"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	pool, err := dbClient.SQL()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(pool, "gudang"),
	)
	reservationMetrics := metrics.NewReservationMetrics(registry)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	adminUsersService, err := auth.NewAdminUsersService(auth.AdminUsersServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	created, err := adminUsersService.EnsureBootstrapAdmin(bootCtx, cfg.Bootstrap)
	if err != nil {
		return err
	}
	if created {
		logg.Info(logg.WithField(bootCtx, "email", cfg.Bootstrap.AdminEmail), "bootstrap admin created")
	}

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	notificationsService, err := notifications.NewService(notifications.ServiceParams{Repository: notificationsRepo})
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	categoriesService, err := categories.NewService(categories.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		return err
	}

	ledger, err := reservation.NewReserver(inventory.NewStockGateway())
	if err != nil {
		return err
	}

	requestsService, err := requests.NewService(requests.ServiceParams{
		Repo:          requests.NewRepository(dbClient.DB()),
		DB:            dbClient,
		Ledger:        ledger,
		Outbox:        outboxService,
		Notifications: notificationsRepo,
		Metrics:       reservationMetrics,
		Logger:        logg,
		Retry:         cfg.Reservation,
	})
	if err != nil {
		return err
	}

	commentsService, err := comments.NewService(comments.NewRepository(dbClient.DB()), dbClient, notificationsRepo)
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(bootCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			sessionManager,
			authService,
			adminUsersService,
			categoriesService,
			inventoryService,
			requestsService,
			commentsService,
			notificationsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(bootCtx, shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
