package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenchat/billing-backend/pkg/db/models"
)

// Repository handles financial transaction and token balance persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, txn *models.FinancialTransaction) error
	FindTransactionByExternalID(ctx context.Context, externalID string) (*models.FinancialTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	AddToBalance(ctx context.Context, userID uuid.UUID, delta int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.FinancialTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransactionByExternalID(ctx context.Context, externalID string) (*models.FinancialTransaction, error) {
	if externalID == "" {
		return nil, nil
	}
	var txn models.FinancialTransaction
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance models.TokenBalance
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return balance.Balance, nil
}

func (r *repository) AddToBalance(ctx context.Context, userID uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("token_balances.balance + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&models.TokenBalance{UserID: userID, Balance: delta}).Error
}
