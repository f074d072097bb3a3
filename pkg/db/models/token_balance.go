package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenBalance maintains the incrementally-updated spendable token total per
// user. The financial_transactions ledger is the source of truth it should
// reconcile against.
type TokenBalance struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
