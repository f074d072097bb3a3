package checkout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/internal/providers/coinremitter"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

type stubBilling struct {
	sub     *models.Subscription
	plan    *models.Plan
	pkg     *models.TokenPackage
	pending int
}

func (s *stubBilling) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}

func (s *stubBilling) EnsurePendingSubscription(ctx context.Context, userID uuid.UUID, cycle enums.BillingCycle) (*models.Subscription, error) {
	s.pending++
	if s.sub == nil {
		s.sub = &models.Subscription{UserID: userID, BillingCycle: cycle, Status: enums.SubscriptionStatusPending}
	}
	return s.sub, nil
}

func (s *stubBilling) FindPlanByCycle(ctx context.Context, cycle enums.BillingCycle) (*models.Plan, error) {
	return s.plan, nil
}

func (s *stubBilling) FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error) {
	return s.pkg, nil
}

type stubInvoices struct {
	lastParams coinremitter.CreateInvoiceParams
	calls      int
}

func (s *stubInvoices) CreateInvoice(ctx context.Context, params coinremitter.CreateInvoiceParams) (*coinremitter.Invoice, error) {
	s.calls++
	s.lastParams = params
	return &coinremitter.Invoice{
		InvoiceID: "INV-" + uuid.NewString()[:8],
		URL:       "https://pay.example/invoice",
	}, nil
}

func TestStartSubscriptionCreatesPendingRow(t *testing.T) {
	billing := &stubBilling{
		plan: &models.Plan{
			ID:           "plan_monthly",
			Name:         "Premium Monthly",
			BillingCycle: enums.BillingCycleMonthly,
			PriceAmount:  decimal.RequireFromString("9.99"),
			CurrencyCode: "USD",
		},
	}
	invoices := &stubInvoices{}
	svc, err := NewService(ServiceParams{Billing: billing, Invoices: invoices})
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}

	userID := uuid.New()
	session, err := svc.StartSubscription(context.Background(), StartSubscriptionParams{
		UserID:       userID,
		BillingCycle: enums.BillingCycleMonthly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if billing.pending != 1 {
		t.Fatalf("expected pending subscription ensured once, got %d", billing.pending)
	}
	if session.PaymentURL == "" || session.InvoiceID == "" {
		t.Fatalf("session not populated: %+v", session)
	}
	if invoices.lastParams.CustomData1 != "user_"+userID.String() {
		t.Fatalf("user marker not threaded: %q", invoices.lastParams.CustomData1)
	}
	if invoices.lastParams.CustomData2 != "monthly" {
		t.Fatalf("billing cycle not threaded: %q", invoices.lastParams.CustomData2)
	}
}

func TestStartSubscriptionUnknownCycleFailsValidation(t *testing.T) {
	svc, _ := NewService(ServiceParams{Billing: &stubBilling{}, Invoices: &stubInvoices{}})

	_, err := svc.StartSubscription(context.Background(), StartSubscriptionParams{
		UserID:       uuid.New(),
		BillingCycle: enums.BillingCycleMonthly,
	})
	if err == nil {
		t.Fatal("expected error when no plan exists for cycle")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartTokensRequiresActiveSubscription(t *testing.T) {
	billing := &stubBilling{
		pkg: &models.TokenPackage{ID: "pkg_100", PriceAmount: decimal.RequireFromString("10.00")},
	}
	invoices := &stubInvoices{}
	svc, _ := NewService(ServiceParams{Billing: billing, Invoices: invoices})

	_, err := svc.StartTokens(context.Background(), StartTokensParams{
		UserID:    uuid.New(),
		PackageID: "pkg_100",
	})
	if err == nil {
		t.Fatal("expected error without active subscription")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if invoices.calls != 0 {
		t.Fatal("no invoice may be opened without an active subscription")
	}
}

func TestStartTokensThreadsTokenMarker(t *testing.T) {
	userID := uuid.New()
	billing := &stubBilling{
		sub: &models.Subscription{UserID: userID, Status: enums.SubscriptionStatusActive},
		pkg: &models.TokenPackage{
			ID:           "pkg_100",
			Name:         "Starter Pack",
			TokenCount:   100,
			BonusTokens:  10,
			PriceAmount:  decimal.RequireFromString("10.00"),
			CurrencyCode: "USD",
		},
	}
	invoices := &stubInvoices{}
	svc, _ := NewService(ServiceParams{Billing: billing, Invoices: invoices})

	session, err := svc.StartTokens(context.Background(), StartTokensParams{
		UserID:    userID,
		PackageID: "pkg_100",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoices.lastParams.CustomData2 != "tokens_pkg_100" {
		t.Fatalf("token marker not threaded: %q", invoices.lastParams.CustomData2)
	}
	if !strings.Contains(invoices.lastParams.Description, "110 tokens") {
		t.Fatalf("expected bonus-inclusive description, got %q", invoices.lastParams.Description)
	}
	if session.Amount.String() != "10" {
		t.Fatalf("expected package price, got %s", session.Amount)
	}
}

func TestStartTokensUnknownPackage(t *testing.T) {
	userID := uuid.New()
	billing := &stubBilling{
		sub: &models.Subscription{UserID: userID, Status: enums.SubscriptionStatusActive},
	}
	svc, _ := NewService(ServiceParams{Billing: billing, Invoices: &stubInvoices{}})

	_, err := svc.StartTokens(context.Background(), StartTokensParams{
		UserID:    userID,
		PackageID: "pkg_nope",
	})
	if err == nil {
		t.Fatal("expected error for unknown package")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
