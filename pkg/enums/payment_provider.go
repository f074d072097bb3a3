package enums

import "fmt"

// PaymentProvider identifies which external payment processor delivered an
// event. It is attached at the routing layer, never inferred from payload
// content.
type PaymentProvider string

const (
	PaymentProviderCoinremitter PaymentProvider = "coinremitter"
	PaymentProviderNOWPayments  PaymentProvider = "nowpayments"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderCoinremitter,
	PaymentProviderNOWPayments,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
