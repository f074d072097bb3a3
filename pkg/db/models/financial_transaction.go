package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// UniqueExternalIDConstraint is the storage-level guard against duplicate
// webhook deliveries; a violation means the event was already processed.
const UniqueExternalIDConstraint = "ux_financial_transactions_external_id"

// FinancialTransaction records an immutable, completed monetary or token
// event. Exactly one row exists per provider payment id.
type FinancialTransaction struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID    string                `gorm:"column:external_id;not null;uniqueIndex:ux_financial_transactions_external_id"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Provider      enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null"`
	Kind          enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	CurrencyCode  string                `gorm:"column:currency_code;not null;default:'USD'"`
	TokensGranted int64                 `gorm:"column:tokens_granted;not null;default:0"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
