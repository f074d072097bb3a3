package nowpaymentswebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/internal/billing"
	"github.com/lumenchat/billing-backend/internal/ingress"
	"github.com/lumenchat/billing-backend/internal/ledger"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	provider "github.com/lumenchat/billing-backend/internal/providers/nowpayments"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

const testSecret = "ipn-secret"

type stubSubscriptions struct {
	last    *billing.SubscriptionPayment
	outcome paymentevent.Outcome
	calls   int
}

func (s *stubSubscriptions) ApplySubscriptionPayment(ctx context.Context, payment billing.SubscriptionPayment) (paymentevent.Outcome, error) {
	s.calls++
	s.last = &payment
	if s.outcome == "" {
		return paymentevent.OutcomeProcessed, nil
	}
	return s.outcome, nil
}

type stubFinder struct {
	sub *models.Subscription
}

func (s *stubFinder) FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	return s.sub, nil
}

type stubTokens struct {
	last  *ledger.TokenPurchase
	calls int
}

func (s *stubTokens) ApplyTokenPurchase(ctx context.Context, purchase ledger.TokenPurchase) (paymentevent.Outcome, error) {
	s.calls++
	s.last = &purchase
	return paymentevent.OutcomeProcessed, nil
}

type stubCatalog struct {
	pkg *models.TokenPackage
}

func (s *stubCatalog) FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error) {
	return s.pkg, nil
}

type stubGuard struct {
	already  bool
	checkErr error
	marked   []string
	deleted  []string
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	if s.already {
		return true, nil
	}
	s.marked = append(s.marked, eventID)
	return false, nil
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

func newService(t *testing.T, subs *stubSubscriptions, finder *stubFinder, tokens *stubTokens, catalog *stubCatalog, guard *stubGuard) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		IPNSecret:     testSecret,
		Subscriptions: subs,
		Finder:        finder,
		Tokens:        tokens,
		Catalog:       catalog,
		Guard:         guard,
	})
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}
	return svc
}

// signedDelivery builds a raw body, its valid signature and the normalized
// payload the ingress layer would produce for it.
func signedDelivery(t *testing.T, doc map[string]any) ([]byte, string, ingress.Payload) {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal delivery: %v", err)
	}
	sig, err := provider.ComputeSignature(raw, testSecret)
	if err != nil {
		t.Fatalf("sign delivery: %v", err)
	}
	payload := ingress.Payload{}
	for key, value := range doc {
		switch typed := value.(type) {
		case string:
			payload[key] = typed
		default:
			encoded, _ := json.Marshal(typed)
			payload[key] = string(encoded)
		}
	}
	return raw, sig, payload
}

func TestRenewalAppliedForKnownSubscription(t *testing.T) {
	userID := uuid.New()
	subID := "NP-SUB-1"
	finder := &stubFinder{
		sub: &models.Subscription{
			UserID:                 userID,
			BillingCycle:           enums.BillingCycleMonthly,
			Status:                 enums.SubscriptionStatusActive,
			ProviderSubscriptionID: &subID,
		},
	}
	subs := &stubSubscriptions{}
	guard := &stubGuard{}
	svc := newService(t, subs, finder, &stubTokens{}, &stubCatalog{}, guard)

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":      "PAY-77",
		"payment_status":  "finished",
		"subscription_id": subID,
		"price_amount":    "9.99",
		"price_currency":  "usd",
	})

	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", outcome)
	}
	if subs.calls != 1 {
		t.Fatalf("expected one reconciliation, got %d", subs.calls)
	}
	if len(guard.marked) != 1 || guard.marked[0] != "PAY-77" {
		t.Fatalf("expected delivery marked after verification, got %v", guard.marked)
	}
	if len(guard.deleted) != 0 {
		t.Fatalf("successful delivery must stay marked, deleted %v", guard.deleted)
	}
	payment := subs.last
	if payment.ProviderSubscriptionID != subID {
		t.Fatalf("provider subscription id not threaded: %q", payment.ProviderSubscriptionID)
	}
	if payment.Event.Subject.UserID != userID {
		t.Fatalf("subject not resolved from stored subscription: %s", payment.Event.Subject.UserID)
	}
	if payment.Event.Currency != "USD" {
		t.Fatalf("currency not normalized: %q", payment.Event.Currency)
	}
}

func TestUnknownSubscriptionIDIsNotFound(t *testing.T) {
	subs := &stubSubscriptions{}
	svc := newService(t, subs, &stubFinder{}, &stubTokens{}, &stubCatalog{}, &stubGuard{})

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":      "PAY-1",
		"payment_status":  "finished",
		"subscription_id": "NP-SUB-MISSING",
	})

	_, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if subs.calls != 0 {
		t.Fatal("unknown subscription must not be reconciled")
	}
}

func TestMissingSignatureNeverReachesClassification(t *testing.T) {
	subs := &stubSubscriptions{}
	tokens := &stubTokens{}
	svc := newService(t, subs, &stubFinder{}, tokens, &stubCatalog{}, &stubGuard{})

	raw, _, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-1",
		"payment_status": "finished",
	})

	_, err := svc.HandleDelivery(context.Background(), raw, "", payload)
	if err == nil {
		t.Fatal("expected error for missing signature")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if subs.calls != 0 || tokens.calls != 0 {
		t.Fatal("unverified payload must not mutate state")
	}
}

func TestInvalidSignatureRejected(t *testing.T) {
	svc := newService(t, &stubSubscriptions{}, &stubFinder{}, &stubTokens{}, &stubCatalog{}, &stubGuard{})

	raw, _, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-1",
		"payment_status": "finished",
	})

	_, err := svc.HandleDelivery(context.Background(), raw, "deadbeef", payload)
	if err == nil {
		t.Fatal("expected error for invalid signature")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestForgedDeliveryCannotSuppressGenuineOne(t *testing.T) {
	userID := uuid.New()
	subID := "NP-SUB-1"
	finder := &stubFinder{
		sub: &models.Subscription{
			UserID:                 userID,
			BillingCycle:           enums.BillingCycleMonthly,
			Status:                 enums.SubscriptionStatusActive,
			ProviderSubscriptionID: &subID,
		},
	}
	subs := &stubSubscriptions{}
	guard := &stubGuard{}
	svc := newService(t, subs, finder, &stubTokens{}, &stubCatalog{}, guard)

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":      "PAY-77",
		"payment_status":  "finished",
		"subscription_id": subID,
	})

	// an attacker who knows the payment id but not the secret
	if _, err := svc.HandleDelivery(context.Background(), raw, "deadbeef", payload); err == nil {
		t.Fatal("expected forged delivery to be rejected")
	}
	if len(guard.marked) != 0 {
		t.Fatalf("forged delivery must not mark the duplicate guard, got %v", guard.marked)
	}

	// the genuine delivery arriving afterwards must still be processed
	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", outcome)
	}
	if subs.calls != 1 {
		t.Fatalf("expected genuine delivery reconciled, got %d calls", subs.calls)
	}
}

func TestDuplicateDeliveryShortCircuits(t *testing.T) {
	subs := &stubSubscriptions{}
	tokens := &stubTokens{}
	svc := newService(t, subs, &stubFinder{}, tokens, &stubCatalog{}, &stubGuard{already: true})

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-77",
		"payment_status": "finished",
	})

	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeAlreadyProcessed {
		t.Fatalf("expected already processed, got %s", outcome)
	}
	if subs.calls != 0 || tokens.calls != 0 {
		t.Fatal("duplicate must not be reconciled again")
	}
}

func TestReconciliationFailureUnmarksGuard(t *testing.T) {
	guard := &stubGuard{}
	svc := newService(t, &stubSubscriptions{}, &stubFinder{}, &stubTokens{}, &stubCatalog{}, guard)

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":      "PAY-1",
		"payment_status":  "finished",
		"subscription_id": "NP-SUB-MISSING",
	})

	if _, err := svc.HandleDelivery(context.Background(), raw, sig, payload); err == nil {
		t.Fatal("expected not found error")
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "PAY-1" {
		t.Fatalf("failed delivery must be unmarked for retry, got %v", guard.deleted)
	}
}

func TestGuardFailureIsDependencyError(t *testing.T) {
	guard := &stubGuard{checkErr: errors.New("redis down")}
	svc := newService(t, &stubSubscriptions{}, &stubFinder{}, &stubTokens{}, &stubCatalog{}, guard)

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-1",
		"payment_status": "finished",
	})

	_, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency, got %v", err)
	}
}

func TestTokenOrderRoutedThroughLedger(t *testing.T) {
	userID := uuid.New()
	orderID := paymentevent.EncodeOrderID(userID, "pkg_500")
	tokens := &stubTokens{}
	catalog := &stubCatalog{pkg: &models.TokenPackage{ID: "pkg_500", TokenCount: 500, BonusTokens: 75}}
	svc := newService(t, &stubSubscriptions{}, &stubFinder{}, tokens, catalog, &stubGuard{})

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-9",
		"payment_status": "finished",
		"order_id":       orderID,
		"price_amount":   "45.00",
		"price_currency": "usd",
	})

	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeProcessed {
		t.Fatalf("expected processed, got %s", outcome)
	}
	if tokens.calls != 1 {
		t.Fatalf("expected token reconciler called once, got %d", tokens.calls)
	}
	if tokens.last.TokensGranted != 575 {
		t.Fatalf("expected 575 tokens, got %d", tokens.last.TokensGranted)
	}
	if tokens.last.Event.Subject.UserID != userID {
		t.Fatalf("subject not decoded from order id: %s", tokens.last.Event.Subject.UserID)
	}
}

func TestNoRoutableSubjectIsAcknowledged(t *testing.T) {
	subs := &stubSubscriptions{}
	tokens := &stubTokens{}
	svc := newService(t, subs, &stubFinder{}, tokens, &stubCatalog{}, &stubGuard{})

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-2",
		"payment_status": "finished",
		"order_id":       "legacy-shop-order-99",
	})

	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
	if subs.calls != 0 || tokens.calls != 0 {
		t.Fatal("unroutable delivery must not mutate state")
	}
}

func TestUnknownPaymentStatusIsAcknowledged(t *testing.T) {
	svc := newService(t, &stubSubscriptions{}, &stubFinder{}, &stubTokens{}, &stubCatalog{}, &stubGuard{})

	raw, sig, payload := signedDelivery(t, map[string]any{
		"payment_id":     "PAY-3",
		"payment_status": "chargeback",
	})

	outcome, err := svc.HandleDelivery(context.Background(), raw, sig, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != paymentevent.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
}
