package enums

// OutboxEventType enumerates billing events emitted through the outbox.
type OutboxEventType string

const (
	OutboxEventSubscriptionActivated OutboxEventType = "subscription.activated"
	OutboxEventSubscriptionExpired   OutboxEventType = "subscription.expired"
	OutboxEventTokensGranted         OutboxEventType = "tokens.granted"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateSubscription OutboxAggregateType = "subscription"
	OutboxAggregateTokenLedger  OutboxAggregateType = "token_ledger"
)
