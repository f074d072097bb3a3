package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/internal/paymentevent"
	"github.com/lumenchat/billing-backend/internal/providers/coinremitter"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

// invoiceCreator opens hosted invoices with the payment provider.
type invoiceCreator interface {
	CreateInvoice(ctx context.Context, params coinremitter.CreateInvoiceParams) (*coinremitter.Invoice, error)
}

// billingCatalog is the slice of the billing service checkout depends on.
type billingCatalog interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	EnsurePendingSubscription(ctx context.Context, userID uuid.UUID, cycle enums.BillingCycle) (*models.Subscription, error)
	FindPlanByCycle(ctx context.Context, cycle enums.BillingCycle) (*models.Plan, error)
	FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Billing  billingCatalog
	Invoices invoiceCreator
	Logg     *logger.Logger
}

// Service initiates provider checkouts. The webhook flow finalizes them.
type Service struct {
	billing  billingCatalog
	invoices invoiceCreator
	logg     *logger.Logger
}

// NewService builds a checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Billing == nil {
		return nil, errors.New("billing service is required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoice client is required")
	}
	return &Service{
		billing:  params.Billing,
		invoices: params.Invoices,
		logg:     params.Logg,
	}, nil
}

// Session is the hosted-payment handle returned to the client.
type Session struct {
	InvoiceID  string          `json:"invoiceId"`
	PaymentURL string          `json:"paymentUrl"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// StartSubscriptionParams describes a subscription checkout request.
type StartSubscriptionParams struct {
	UserID       uuid.UUID
	BillingCycle enums.BillingCycle
}

// StartSubscription creates the pending subscription row and opens a hosted
// invoice carrying the subject passthrough fields the webhook will decode.
func (s *Service) StartSubscription(ctx context.Context, params StartSubscriptionParams) (*Session, error) {
	plan, err := s.billing.FindPlanByCycle(ctx, params.BillingCycle)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no plan for billing cycle %q", params.BillingCycle))
	}

	if _, err := s.billing.EnsurePendingSubscription(ctx, params.UserID, params.BillingCycle); err != nil {
		return nil, err
	}

	data1, data2 := paymentevent.EncodeCustomData(paymentevent.Subject{
		Kind:         paymentevent.SubjectSubscription,
		UserID:       params.UserID,
		BillingCycle: params.BillingCycle,
	})

	invoice, err := s.invoices.CreateInvoice(ctx, coinremitter.CreateInvoiceParams{
		Amount:      plan.PriceAmount,
		Currency:    plan.CurrencyCode,
		Description: fmt.Sprintf("%s subscription", plan.Name),
		CustomData1: data1,
		CustomData2: data2,
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"invoice_id": invoice.InvoiceID,
			"plan_id":    plan.ID,
		})
		s.logg.Info(logCtx, "subscription checkout started")
	}

	return &Session{
		InvoiceID:  invoice.InvoiceID,
		PaymentURL: invoice.URL,
		Amount:     plan.PriceAmount,
		Currency:   plan.CurrencyCode,
	}, nil
}

// StartTokensParams describes a token-package checkout request.
type StartTokensParams struct {
	UserID    uuid.UUID
	PackageID string
}

// StartTokens opens a hosted invoice for a token package. An active
// subscription is a precondition here, not at webhook time: once the invoice
// exists, the eventual payment is always honored.
func (s *Service) StartTokens(ctx context.Context, params StartTokensParams) (*Session, error) {
	sub, err := s.billing.GetSubscription(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an active subscription is required to purchase tokens")
	}

	pkg, err := s.billing.FindTokenPackageByID(ctx, params.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown token package %q", params.PackageID))
	}

	data1, data2 := paymentevent.EncodeCustomData(paymentevent.Subject{
		Kind:      paymentevent.SubjectTokenPurchase,
		UserID:    params.UserID,
		PackageID: pkg.ID,
	})

	invoice, err := s.invoices.CreateInvoice(ctx, coinremitter.CreateInvoiceParams{
		Amount:      pkg.PriceAmount,
		Currency:    pkg.CurrencyCode,
		Description: fmt.Sprintf("%s (%d tokens)", pkg.Name, pkg.TotalTokens()),
		CustomData1: data1,
		CustomData2: data2,
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"invoice_id": invoice.InvoiceID,
			"package_id": pkg.ID,
		})
		s.logg.Info(logCtx, "token checkout started")
	}

	return &Session{
		InvoiceID:  invoice.InvoiceID,
		PaymentURL: invoice.URL,
		Amount:     pkg.PriceAmount,
		Currency:   pkg.CurrencyCode,
	}, nil
}
