package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// Subscription persists per-user subscription state. At most one row exists
// per user; renewals and cancellations mutate it in place.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;unique"`
	PlanID             *string                  `gorm:"column:plan_id"`
	BillingCycle       enums.BillingCycle       `gorm:"column:billing_cycle;type:billing_cycle;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'pending'"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end"`
	// ExternalOrderID holds the provider transaction id of the last applied
	// payment; expiry events must match it before they take effect.
	ExternalOrderID string `gorm:"column:external_order_id;index"`
	// ProviderSubscriptionID is the recurring subscription id assigned by the
	// IPN provider; used to attribute renewal payments to a local row.
	ProviderSubscriptionID *string    `gorm:"column:provider_subscription_id;index"`
	CancelledAt            *time.Time `gorm:"column:cancelled_at"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
