package webhooks

import (
	"context"
	"net/http"
	"time"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	provider "github.com/lumenchat/billing-backend/internal/providers/nowpayments"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/metrics"
)

type nowPaymentsService interface {
	HandleDelivery(ctx context.Context, raw []byte, signature string, payload ingress.Payload) (paymentevent.Outcome, error)
}

// NOWPaymentsWebhook ingests IPN deliveries. The controller only normalizes
// the payload; signature verification and duplicate suppression happen in the
// service over the raw body.
func NOWPaymentsWebhook(svc nowPaymentsService, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	const providerLabel = "nowpayments"

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		m.IncReceived(providerLabel)
		start := time.Now()
		defer func() { m.ObserveDuration(providerLabel, time.Since(start)) }()

		payload, raw := ingress.Parse(r)
		if payload.IsPing() {
			responses.WriteSuccess(w, ackResponse{Success: true})
			return
		}

		signature := r.Header.Get(provider.SignatureHeader)
		outcome, err := svc.HandleDelivery(ctx, raw, signature, payload)
		if err != nil {
			m.IncOutcome(providerLabel, "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		m.IncOutcome(providerLabel, string(outcome))
		responses.WriteSuccess(w, ackFor(outcome))
	}
}
