package coinremitterwebhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumenchat/billing-backend/internal/billing"
	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/ledger"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	provider "github.com/lumenchat/billing-backend/internal/providers/coinremitter"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type invoiceFetcher interface {
	GetInvoice(ctx context.Context, invoiceID string) (*provider.Invoice, error)
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

// ServiceParams groups dependencies for the invoice-provider webhook service.
type ServiceParams struct {
	Invoices      invoiceFetcher
	Subscriptions subscriptionReconciler
	Tokens        tokenReconciler
	Catalog       packageCatalog
	Guard         deliveryGuard
	Logg          *logger.Logger
}

// Service verifies, classifies and reconciles invoice-provider deliveries.
// Verification is an out-of-band re-fetch: the webhook body's claim is only
// trusted after the provider's read API confirms it.
type Service struct {
	invoices      invoiceFetcher
	subscriptions subscriptionReconciler
	tokens        tokenReconciler
	catalog       packageCatalog
	guard         deliveryGuard
	logg          *logger.Logger
}

// NewService builds the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Invoices == nil {
		return nil, errors.New("invoice client is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription reconciler is required")
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
		invoices:      params.Invoices,
		subscriptions: params.Subscriptions,
		tokens:        params.Tokens,
		catalog:       params.Catalog,
		guard:         params.Guard,
		logg:          params.Logg,
	}, nil
}

// HandlePayload processes one normalized delivery and returns its outcome.
// The duplicate fast path is only marked after the re-fetched invoice
// confirms the claimed status, so an unverified delivery can never suppress
// the genuine one.
func (s *Service) HandlePayload(ctx context.Context, payload ingress.Payload) (paymentevent.Outcome, error) {
	invoiceID := payload.Get("invoice_id")
	if invoiceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invoice_id is required")
	}
	claimedCode, ok := payload.Int("status_code")
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "status_code is required")
	}

	invoice, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if invoice.StatusCode != claimedCode {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"invoice_id":    invoiceID,
				"claimed_code":  claimedCode,
				"verified_code": invoice.StatusCode,
			})
			s.logg.Warn(logCtx, "webhook status code does not match provider record")
		}
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "status code mismatch")
	}

	alreadyProcessed, err := s.guard.CheckAndMark(ctx, invoiceID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if alreadyProcessed {
		return paymentevent.OutcomeAlreadyProcessed, nil
	}

	outcome, err := s.reconcile(ctx, invoiceID, payload, invoice)
	if err != nil {
		// unmark so the provider's retry is re-processed
		_ = s.guard.Delete(ctx, invoiceID)
		return "", err
	}
	return outcome, nil
}

func (s *Service) reconcile(ctx context.Context, invoiceID string, payload ingress.Payload, invoice *provider.Invoice) (paymentevent.Outcome, error) {
	// the re-fetched invoice is authoritative for the passthrough fields;
	// fall back to the webhook body only when the provider omits them
	data1, data2 := invoice.CustomData1, invoice.CustomData2
	if data1 == "" {
		data1 = payload.Get("custom_data1")
	}
	if data2 == "" {
		data2 = payload.Get("custom_data2")
	}

	subject, err := paymentevent.DecodeCustomData(data1, data2)
	if err != nil {
		// a payment that cannot be attributed must be rejected loudly, not
		// dropped; the raw fields go to the log for manual follow-up
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"invoice_id":   invoiceID,
				"custom_data1": data1,
				"custom_data2": data2,
			})
			s.logg.Error(logCtx, "webhook subject cannot be decoded", err)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot attribute payment")
	}

	amount := invoice.USDAmount
	if amount.IsZero() {
		if fromBody, ok := payload.FirstDecimal("paid_amount.USD", "usd_amount"); ok {
			amount = fromBody
		}
	}

	event := paymentevent.Event{
		ExternalID:  invoiceID,
		Provider:    enums.PaymentProviderCoinremitter,
		Lifecycle:   provider.MapStatusCode(invoice.StatusCode),
		StatusCode:  invoice.StatusCode,
		GrossAmount: amount,
		Currency:    "USD",
		Subject:     subject,
	}

	switch subject.Kind {
	case paymentevent.SubjectTokenPurchase:
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
	default:
		return s.subscriptions.ApplySubscriptionPayment(ctx, billing.SubscriptionPayment{Event: event})
	}
}
