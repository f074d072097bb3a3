package paymentevent

import (
	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// Event is the provider-agnostic view of a verified webhook delivery. It is
// built fresh per request and never persisted.
type Event struct {
	// ExternalID is the provider-assigned payment id, unique per provider.
	ExternalID string
	// Provider is attached by the route that received the delivery.
	Provider enums.PaymentProvider
	// Lifecycle is the provider's native status mapped onto the shared set.
	Lifecycle enums.PaymentLifecycle
	// StatusCode preserves the provider's raw numeric status for logging.
	StatusCode int
	// GrossAmount is the payment total in the reference currency.
	GrossAmount decimal.Decimal
	Currency    string
	Subject     Subject
}

// Outcome is the terminal disposition of a reconciliation attempt. All three
// are acknowledged with HTTP 200; they differ only in what was mutated.
type Outcome string

const (
	// OutcomeProcessed means state was mutated by this delivery.
	OutcomeProcessed Outcome = "processed"
	// OutcomeAlreadyProcessed means a prior delivery of the same external id
	// already applied the change.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeIgnored means the event was valid but carried no actionable
	// lifecycle transition for the stored state.
	OutcomeIgnored Outcome = "ignored"
)
