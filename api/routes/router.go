package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenchat/billing-backend/api/controllers"
	webhookcontrollers "github.com/lumenchat/billing-backend/api/controllers/webhooks"
	"github.com/lumenchat/billing-backend/api/middleware"
	"github.com/lumenchat/billing-backend/internal/billing"
	"github.com/lumenchat/billing-backend/internal/checkout"
	"github.com/lumenchat/billing-backend/internal/ledger"
	coinremitterwebhook "github.com/lumenchat/billing-backend/internal/webhooks/coinremitter"
	nowpaymentswebhook "github.com/lumenchat/billing-backend/internal/webhooks/nowpayments"
	"github.com/lumenchat/billing-backend/pkg/config"
	"github.com/lumenchat/billing-backend/pkg/db"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/metrics"
	"github.com/lumenchat/billing-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	billingService *billing.Service,
	ledgerService *ledger.Service,
	checkoutService *checkout.Service,
	coinremitterWebhookService *coinremitterwebhook.Service,
	nowPaymentsWebhookService *nowpaymentswebhook.Service,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/coinremitter", webhookcontrollers.Liveness())
		r.Post("/coinremitter", webhookcontrollers.CoinremitterWebhook(coinremitterWebhookService, webhookMetrics, logg))
		r.Get("/nowpayments", webhookcontrollers.Liveness())
		r.Post("/nowpayments", webhookcontrollers.NOWPaymentsWebhook(nowPaymentsWebhookService, webhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", controllers.PlanList(billingService, logg))
		r.Get("/token-packages", controllers.TokenPackageList(billingService, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/subscription", controllers.SubscriptionCheckout(checkoutService, logg))
			r.Post("/tokens", controllers.TokenCheckout(checkoutService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/me", controllers.SubscriptionFetch(billingService, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(billingService, logg))
		})

		r.Get("/tokens/balance", controllers.TokenBalance(ledgerService, logg))
	})

	return r
}
