package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenchat/billing-backend/api/routes"
	"github.com/lumenchat/billing-backend/internal/billing"
	"github.com/lumenchat/billing-backend/internal/checkout"
	"github.com/lumenchat/billing-backend/internal/ledger"
	"github.com/lumenchat/billing-backend/internal/providers/coinremitter"
	"github.com/lumenchat/billing-backend/internal/webhooks"
	coinremitterwebhook "github.com/lumenchat/billing-backend/internal/webhooks/coinremitter"
	nowpaymentswebhook "github.com/lumenchat/billing-backend/internal/webhooks/nowpayments"
	"github.com/lumenchat/billing-backend/pkg/config"
	"github.com/lumenchat/billing-backend/pkg/db"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/metrics"
	"github.com/lumenchat/billing-backend/pkg/migrate"
	"github.com/lumenchat/billing-backend/pkg/outbox"
	"github.com/lumenchat/billing-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	coinremitterClient, err := coinremitter.NewClient(cfg.Coinremitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create coinremitter client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:   ledgerRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Logg:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:       billingRepo,
		LedgerRepo: ledgerRepo,
		Tx:         dbClient,
		Outbox:     outboxService,
		Logg:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Billing:  billingService,
		Invoices: coinremitterClient,
		Logg:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	coinremitterGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.GuardTTL, "coinremitter")
	if err != nil {
		logg.Error(context.Background(), "failed to create coinremitter guard", err)
		os.Exit(1)
	}
	nowPaymentsGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.GuardTTL, "nowpayments")
	if err != nil {
		logg.Error(context.Background(), "failed to create nowpayments guard", err)
		os.Exit(1)
	}

	coinremitterWebhookService, err := coinremitterwebhook.NewService(coinremitterwebhook.ServiceParams{
		Invoices:      coinremitterClient,
		Subscriptions: billingService,
		Tokens:        ledgerService,
		Catalog:       billingService,
		Guard:         coinremitterGuard,
		Logg:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create coinremitter webhook service", err)
		os.Exit(1)
	}

	nowPaymentsWebhookService, err := nowpaymentswebhook.NewService(nowpaymentswebhook.ServiceParams{
		IPNSecret:     cfg.NOWPayments.IPNSecret,
		Subscriptions: billingService,
		Finder:        billingService,
		Tokens:        ledgerService,
		Catalog:       billingService,
		Guard:         nowPaymentsGuard,
		Logg:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create nowpayments webhook service", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			billingService,
			ledgerService,
			checkoutService,
			coinremitterWebhookService,
			nowPaymentsWebhookService,
			webhookMetrics,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(drainCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
