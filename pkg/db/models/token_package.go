package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenPackage is a purchasable bundle of spendable tokens.
type TokenPackage struct {
	ID           string          `gorm:"column:id;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	TokenCount   int64           `gorm:"column:token_count;not null"`
	BonusTokens  int64           `gorm:"column:bonus_tokens;not null;default:0"`
	PriceAmount  decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode string          `gorm:"column:currency_code;not null;default:'USD'"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalTokens returns the credited amount for a completed purchase.
func (p TokenPackage) TotalTokens() int64 {
	return p.TokenCount + p.BonusTokens
}
