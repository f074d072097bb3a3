package enums

import "fmt"

// PaymentLifecycle is the shared lifecycle both providers' native status
// codes are mapped onto before reconciliation.
type PaymentLifecycle string

const (
	PaymentLifecyclePending   PaymentLifecycle = "pending"
	PaymentLifecycleCompleted PaymentLifecycle = "completed"
	PaymentLifecycleFailed    PaymentLifecycle = "failed"
	PaymentLifecycleExpired   PaymentLifecycle = "expired"
)

var validPaymentLifecycles = []PaymentLifecycle{
	PaymentLifecyclePending,
	PaymentLifecycleCompleted,
	PaymentLifecycleFailed,
	PaymentLifecycleExpired,
}

// String implements fmt.Stringer.
func (p PaymentLifecycle) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentLifecycle.
func (p PaymentLifecycle) IsValid() bool {
	for _, candidate := range validPaymentLifecycles {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentLifecycle converts raw input into a PaymentLifecycle.
func ParsePaymentLifecycle(value string) (PaymentLifecycle, error) {
	for _, candidate := range validPaymentLifecycles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment lifecycle %q", value)
}
