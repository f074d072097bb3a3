package nowpaymentswebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumenchat/billing-backend/internal/billing"
	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/ledger"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	provider "github.com/lumenchat/billing-backend/internal/providers/nowpayments"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type subscriptionFinder interface {
	FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error)
}

type subscriptionReconciler interface {
	ApplySubscriptionPayment(ctx context.Context, payment billing.SubscriptionPayment) (paymentevent.Outcome, error)
}

type tokenReconciler interface {
	ApplyTokenPurchase(ctx context.Context, purchase ledger.TokenPurchase) (paymentevent.Outcome, error)
}

type packageCatalog interface {
	FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// ServiceParams groups dependencies for the IPN webhook service.
type ServiceParams struct {
	IPNSecret     string
	Subscriptions subscriptionReconciler
	Finder        subscriptionFinder
	Tokens        tokenReconciler
	Catalog       packageCatalog
	Guard         deliveryGuard
	Logg          *logger.Logger
}

// Service verifies, classifies and reconciles IPN deliveries. Authenticity
// is a shared-secret HMAC over the raw body; an unverified payload never
// reaches classification and never touches the duplicate guard.
type Service struct {
	ipnSecret     string
	subscriptions subscriptionReconciler
	finder        subscriptionFinder
	tokens        tokenReconciler
	catalog       packageCatalog
	guard         deliveryGuard
	logg          *logger.Logger
}

// NewService builds the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if strings.TrimSpace(params.IPNSecret) == "" {
		return nil, errors.New("ipn secret is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription reconciler is required")
	}
	if params.Finder == nil {
		return nil, errors.New("subscription finder is required")
	}
	if params.Tokens == nil {
		return nil, errors.New("token reconciler is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("package catalog is required")
	}
	if params.Guard == nil {
		return nil, errors.New("delivery guard is required")
	}
	return &Service{
		ipnSecret:     params.IPNSecret,
		subscriptions: params.Subscriptions,
		finder:        params.Finder,
		tokens:        params.Tokens,
		catalog:       params.Catalog,
		guard:         params.Guard,
		logg:          params.Logg,
	}, nil
}

// HandleDelivery verifies the signature over the raw body, then routes the
// normalized payload to the matching reconciliation path. The duplicate fast
// path is only marked once the signature checks out, so a forged delivery can
// never suppress the genuine one.
func (s *Service) HandleDelivery(ctx context.Context, raw []byte, signature string, payload ingress.Payload) (paymentevent.Outcome, error) {
	if err := provider.VerifySignature(raw, signature, s.ipnSecret); err != nil {
		return "", err
	}

	paymentID := payload.Get("payment_id")
	if paymentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment_id is required")
	}

	alreadyProcessed, err := s.guard.CheckAndMark(ctx, paymentID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if alreadyProcessed {
		return paymentevent.OutcomeAlreadyProcessed, nil
	}

	outcome, err := s.route(ctx, paymentID, payload)
	if err != nil {
		// unmark so the provider's retry is re-processed
		_ = s.guard.Delete(ctx, paymentID)
		return "", err
	}
	return outcome, nil
}

func (s *Service) route(ctx context.Context, paymentID string, payload ingress.Payload) (paymentevent.Outcome, error) {
	lifecycle, ok := provider.MapPaymentStatus(payload.Get("payment_status"))
	if !ok {
		// the provider ships event types outside this system's interest;
		// acknowledge them so it stops retrying
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "payment_status", payload.Get("payment_status"))
			s.logg.Info(logCtx, "ipn payment status not actionable")
		}
		return paymentevent.OutcomeIgnored, nil
	}

	amount, _ := payload.FirstDecimal("price_amount", "pay_amount")
	currency := strings.ToUpper(payload.Get("price_currency"))
	if currency == "" {
		currency = "USD"
	}

	event := paymentevent.Event{
		ExternalID:  paymentID,
		Provider:    enums.PaymentProviderNOWPayments,
		Lifecycle:   lifecycle,
		GrossAmount: amount,
		Currency:    currency,
	}

	if orderID := payload.Get("order_id"); paymentevent.IsTokenOrderID(orderID) {
		subject, err := paymentevent.DecodeOrderID(orderID)
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "order_id", orderID)
				s.logg.Error(logCtx, "ipn order id cannot be decoded", err)
			}
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot attribute payment")
		}
		event.Subject = subject

		pkg, err := s.catalog.FindTokenPackageByID(ctx, subject.PackageID)
		if err != nil {
			return "", err
		}
		if pkg == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown token package %q", subject.PackageID))
		}
		return s.tokens.ApplyTokenPurchase(ctx, ledger.TokenPurchase{
			Event:         event,
			TokensGranted: pkg.TotalTokens(),
		})
	}

	if subID := payload.Get("subscription_id"); subID != "" {
		sub, err := s.finder.FindSubscriptionByProviderSubID(ctx, subID)
		if err != nil {
			return "", err
		}
		if sub == nil {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no subscription for provider id %q", subID))
		}

		event.Subject = paymentevent.Subject{
			Kind:         paymentevent.SubjectSubscription,
			UserID:       sub.UserID,
			BillingCycle: sub.BillingCycle,
		}
		return s.subscriptions.ApplySubscriptionPayment(ctx, billing.SubscriptionPayment{
			Event:                  event,
			ProviderSubscriptionID: subID,
		})
	}

	// neither a token order marker nor a subscription id: valid but
	// unhandled, acknowledge and move on
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "payment_id", paymentID)
		s.logg.Info(logCtx, "ipn delivery carries no routable subject")
	}
	return paymentevent.OutcomeIgnored, nil
}
