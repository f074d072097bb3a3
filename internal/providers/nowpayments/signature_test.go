package nowpayments

import (
	"testing"

	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

const testSecret = "ipn-secret"

func TestVerifySignatureAcceptsValid(t *testing.T) {
	payload := []byte(`{"payment_id":123,"payment_status":"finished","price_amount":9.99}`)
	sig, err := ComputeSignature(payload, testSecret)
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}
	if err := VerifySignature(payload, sig, testSecret); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureKeyOrderIndependent(t *testing.T) {
	// same document, different key order; the canonical form must match
	original := []byte(`{"b":2,"a":1}`)
	reordered := []byte(`{"a":1,"b":2}`)

	sig, err := ComputeSignature(original, testSecret)
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}
	if err := VerifySignature(reordered, sig, testSecret); err != nil {
		t.Fatalf("expected key order not to matter, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	err := VerifySignature([]byte(`{"a":1}`), "", testSecret)
	if err == nil {
		t.Fatal("expected error for missing header")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	payload := []byte(`{"payment_id":123,"price_amount":9.99}`)
	sig, err := ComputeSignature(payload, testSecret)
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}

	tampered := []byte(`{"payment_id":123,"price_amount":99.99}`)
	if err := VerifySignature(tampered, sig, testSecret); err == nil {
		t.Fatal("expected signature mismatch")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"payment_id":123}`)
	sig, err := ComputeSignature(payload, "other-secret")
	if err != nil {
		t.Fatalf("compute signature: %v", err)
	}
	if err := VerifySignature(payload, sig, testSecret); err == nil {
		t.Fatal("expected signature mismatch for wrong secret")
	}
}

func TestVerifySignatureRequiresConfiguredSecret(t *testing.T) {
	err := VerifySignature([]byte(`{"a":1}`), "deadbeef", "")
	if err == nil {
		t.Fatal("expected error for unconfigured secret")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMapPaymentStatus(t *testing.T) {
	cases := []struct {
		status string
		want   enums.PaymentLifecycle
		ok     bool
	}{
		{StatusFinished, enums.PaymentLifecycleCompleted, true},
		{StatusWaiting, enums.PaymentLifecyclePending, true},
		{StatusPartiallyPaid, enums.PaymentLifecyclePending, true},
		{StatusFailed, enums.PaymentLifecycleFailed, true},
		{StatusRefunded, enums.PaymentLifecycleFailed, true},
		{StatusExpired, enums.PaymentLifecycleExpired, true},
		{"chargeback", "", false},
	}
	for _, tc := range cases {
		got, ok := MapPaymentStatus(tc.status)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("status %q: expected (%s, %v), got (%s, %v)", tc.status, tc.want, tc.ok, got, ok)
		}
	}
}
