package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// Plan captures the local metadata for a subscription pricing plan.
type Plan struct {
	ID           string             `gorm:"column:id;primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	BillingCycle enums.BillingCycle `gorm:"column:billing_cycle;type:billing_cycle;not null;uniqueIndex"`
	PriceAmount  decimal.Decimal    `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode string             `gorm:"column:currency_code;not null;default:'USD'"`
	// TokenGrant is credited to the user's balance on every successful
	// subscription payment for this plan.
	TokenGrant int64          `gorm:"column:token_grant;not null;default:0"`
	Features   pq.StringArray `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	Active     bool           `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
