package webhooks

import (
	"context"
	"net/http"
	"time"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/metrics"
)

type coinremitterService interface {
	HandlePayload(ctx context.Context, payload ingress.Payload) (paymentevent.Outcome, error)
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ackFor(outcome paymentevent.Outcome) ackResponse {
	if outcome == paymentevent.OutcomeAlreadyProcessed {
		return ackResponse{Success: true, Message: "Already processed"}
	}
	return ackResponse{Success: true}
}

// Liveness answers provider endpoint checks without touching any dependency.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// CoinremitterWebhook ingests invoice-provider deliveries. Empty and ping
// bodies are acknowledged without reaching the database so the provider's
// endpoint checks always succeed. Verification and duplicate suppression
// happen in the service.
func CoinremitterWebhook(svc coinremitterService, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	const providerLabel = "coinremitter"

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		m.IncReceived(providerLabel)
		start := time.Now()
		defer func() { m.ObserveDuration(providerLabel, time.Since(start)) }()

		payload, _ := ingress.Parse(r)
		if payload.IsPing() {
			responses.WriteSuccess(w, ackResponse{Success: true})
			return
		}

		outcome, err := svc.HandlePayload(ctx, payload)
		if err != nil {
			m.IncOutcome(providerLabel, "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		m.IncOutcome(providerLabel, string(outcome))
		responses.WriteSuccess(w, ackFor(outcome))
	}
}
