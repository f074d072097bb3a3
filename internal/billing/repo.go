package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
)

// Repository handles subscription and catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	UpdateSubscription(ctx context.Context, subscription *models.Subscription) error
	FindSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error)
	FindPlanByID(ctx context.Context, id string) (*models.Plan, error)
	FindPlanByCycle(ctx context.Context, cycle enums.BillingCycle) (*models.Plan, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
	FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error)
	ListTokenPackages(ctx context.Context) ([]models.TokenPackage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) FindSubscriptionByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	if providerSubID == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	if id == "" {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanByCycle(ctx context.Context, cycle enums.BillingCycle) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("billing_cycle = ? AND active", cycle).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).
		Where("active").
		Order("price_amount ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error) {
	if id == "" {
		return nil, nil
	}
	var pkg models.TokenPackage
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pkg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) ListTokenPackages(ctx context.Context) ([]models.TokenPackage, error) {
	var pkgs []models.TokenPackage
	if err := r.db.WithContext(ctx).
		Where("active").
		Order("price_amount ASC").
		Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}
