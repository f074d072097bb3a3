package enums

import "fmt"

// TransactionKind maps to the transaction_kind enum in Postgres.
type TransactionKind string

const (
	TransactionKindTokenPurchase       TransactionKind = "token_purchase"
	TransactionKindSubscriptionPayment TransactionKind = "subscription_payment"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindTokenPurchase,
	TransactionKindSubscriptionPayment,
}

// IsValid reports whether the value matches the canonical transaction enum.
func (t TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
