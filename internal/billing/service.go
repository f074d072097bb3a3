package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenchat/billing-backend/internal/ledger"
	"github.com/lumenchat/billing-backend/internal/paymentevent"
	dbpkg "github.com/lumenchat/billing-backend/pkg/db"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/outbox"
)

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo       Repository
	LedgerRepo ledger.Repository
	Tx         dbpkg.TxRunner
	Outbox     eventEmitter
	Logg       *logger.Logger
	Now        func() time.Time
}

// Service owns the subscription state machine and the plan/package catalog.
type Service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	tx         dbpkg.TxRunner
	outbox     eventEmitter
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.LedgerRepo == nil {
		return nil, errors.New("ledger repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       params.Repo,
		ledgerRepo: params.LedgerRepo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		logg:       params.Logg,
		now:        now,
	}, nil
}

// SubscriptionPayment is a verified, classified subscription payment event.
type SubscriptionPayment struct {
	Event paymentevent.Event
	// ProviderSubscriptionID is the recurring subscription id the IPN
	// provider assigns; empty for the invoice provider.
	ProviderSubscriptionID string
}

type subscriptionActivatedPayload struct {
	UserID         uuid.UUID `json:"userId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	PlanID         string    `json:"planId,omitempty"`
	BillingCycle   string    `json:"billingCycle"`
	PeriodEnd      time.Time `json:"periodEnd"`
	ExternalID     string    `json:"externalId"`
}

type subscriptionExpiredPayload struct {
	UserID         uuid.UUID `json:"userId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	ExternalID     string    `json:"externalId"`
}

// ApplySubscriptionPayment routes a subscription payment event through the
// state machine. Each distinct external id is its own renewal event; only a
// true duplicate of an already-recorded external id is suppressed.
func (s *Service) ApplySubscriptionPayment(ctx context.Context, payment SubscriptionPayment) (paymentevent.Outcome, error) {
	event := payment.Event

	existing, err := s.ledgerRepo.FindTransactionByExternalID(ctx, event.ExternalID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "duplicate lookup failed")
	}
	if existing != nil {
		return paymentevent.OutcomeAlreadyProcessed, nil
	}

	switch event.Lifecycle {
	case enums.PaymentLifecycleCompleted:
		return s.activateOrRenew(ctx, payment)
	case enums.PaymentLifecyclePending:
		return s.markPending(ctx, event)
	case enums.PaymentLifecycleExpired:
		return s.expire(ctx, event)
	default:
		// failed payments carry no subscription transition
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"external_id": event.ExternalID,
				"lifecycle":   event.Lifecycle,
			})
			s.logg.Info(logCtx, "subscription payment lifecycle not actionable")
		}
		return paymentevent.OutcomeIgnored, nil
	}
}

// activateOrRenew applies a completed payment: the subscription becomes
// active and its period end extends by one billing cycle from the later of
// now or the previous period end, so renewals stack instead of resetting.
func (s *Service) activateOrRenew(ctx context.Context, payment SubscriptionPayment) (paymentevent.Outcome, error) {
	event := payment.Event
	userID := event.Subject.UserID
	cycle := event.Subject.BillingCycle

	currency := event.Currency
	if currency == "" {
		currency = "USD"
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		now := s.now().UTC()

		sub, err := repo.FindSubscriptionByUser(ctx, userID)
		if err != nil {
			return err
		}
		created := false
		if sub == nil {
			// checkout normally pre-creates a pending row; a missing one
			// means the payment still has to land somewhere
			sub = &models.Subscription{
				UserID:       userID,
				BillingCycle: cycle,
				Status:       enums.SubscriptionStatusPending,
			}
			created = true
		}
		if cycle.IsValid() {
			sub.BillingCycle = cycle
		}

		plan, err := repo.FindPlanByCycle(ctx, sub.BillingCycle)
		if err != nil {
			return err
		}

		base := now
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			base = *sub.CurrentPeriodEnd
		}
		newEnd := sub.BillingCycle.Advance(base)

		if sub.CurrentPeriodStart == nil {
			sub.CurrentPeriodStart = &now
		}
		sub.CurrentPeriodEnd = &newEnd
		sub.Status = enums.SubscriptionStatusActive
		sub.ExternalOrderID = event.ExternalID
		if payment.ProviderSubscriptionID != "" {
			providerSubID := payment.ProviderSubscriptionID
			sub.ProviderSubscriptionID = &providerSubID
		}

		var tokenGrant int64
		if plan != nil {
			planID := plan.ID
			sub.PlanID = &planID
			tokenGrant = plan.TokenGrant
		}

		if created {
			if err := repo.CreateSubscription(ctx, sub); err != nil {
				return err
			}
		} else {
			if err := repo.UpdateSubscription(ctx, sub); err != nil {
				return err
			}
		}

		txn := &models.FinancialTransaction{
			ExternalID:    event.ExternalID,
			UserID:        userID,
			Provider:      event.Provider,
			Kind:          enums.TransactionKindSubscriptionPayment,
			Amount:        event.GrossAmount,
			CurrencyCode:  currency,
			TokensGranted: tokenGrant,
		}
		if err := ledgerRepo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		if tokenGrant > 0 {
			if err := ledgerRepo.AddToBalance(ctx, userID, tokenGrant); err != nil {
				return err
			}
		}

		if s.outbox != nil {
			planID := ""
			if sub.PlanID != nil {
				planID = *sub.PlanID
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventSubscriptionActivated,
				AggregateType: enums.OutboxAggregateSubscription,
				AggregateID:   sub.ID,
				Source: &outbox.SourceRef{
					UserID:     userID,
					Provider:   event.Provider.String(),
					ExternalID: event.ExternalID,
				},
				Data: subscriptionActivatedPayload{
					UserID:         userID,
					SubscriptionID: sub.ID,
					PlanID:         planID,
					BillingCycle:   sub.BillingCycle.String(),
					PeriodEnd:      newEnd,
					ExternalID:     event.ExternalID,
				},
			})
		}
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, models.UniqueExternalIDConstraint) {
			return paymentevent.OutcomeAlreadyProcessed, nil
		}
		return "", err
	}
	return paymentevent.OutcomeProcessed, nil
}

// markPending records a pending/under-paid signal on an existing row only. A
// bare pending signal never creates a subscription, and never demotes an
// already-active one.
func (s *Service) markPending(ctx context.Context, event paymentevent.Event) (paymentevent.Outcome, error) {
	sub, err := s.repo.FindSubscriptionByUser(ctx, event.Subject.UserID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.Status == enums.SubscriptionStatusActive {
		return paymentevent.OutcomeIgnored, nil
	}

	sub.Status = enums.SubscriptionStatusPending
	sub.ExternalOrderID = event.ExternalID
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return "", err
	}
	return paymentevent.OutcomeProcessed, nil
}

// expire applies an expired/cancelled signal, but only when the stored order
// id matches the event's, so a late event for a superseded order cannot
// expire a subscription renewed since.
func (s *Service) expire(ctx context.Context, event paymentevent.Event) (paymentevent.Outcome, error) {
	sub, err := s.repo.FindSubscriptionByUser(ctx, event.Subject.UserID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.ExternalOrderID != event.ExternalID {
		return paymentevent.OutcomeIgnored, nil
	}
	if sub.Status == enums.SubscriptionStatusExpired {
		return paymentevent.OutcomeAlreadyProcessed, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub.Status = enums.SubscriptionStatusExpired
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		if s.outbox != nil {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventSubscriptionExpired,
				AggregateType: enums.OutboxAggregateSubscription,
				AggregateID:   sub.ID,
				Source: &outbox.SourceRef{
					UserID:     event.Subject.UserID,
					Provider:   event.Provider.String(),
					ExternalID: event.ExternalID,
				},
				Data: subscriptionExpiredPayload{
					UserID:         event.Subject.UserID,
					SubscriptionID: sub.ID,
					ExternalID:     event.ExternalID,
				},
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return paymentevent.OutcomeProcessed, nil
}

// EnsurePendingSubscription prepares the row a checkout's webhook will later
// activate. An already-active subscription is returned untouched so a manual
// renewal checkout does not disturb the current period.
func (s *Service) EnsurePendingSubscription(ctx context.Context, userID uuid.UUID, cycle enums.BillingCycle) (*models.Subscription, error) {
	if !cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}

	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &models.Subscription{
			UserID:       userID,
			BillingCycle: cycle,
			Status:       enums.SubscriptionStatusPending,
		}
		if err := s.repo.CreateSubscription(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if sub.Status == enums.SubscriptionStatusActive {
		return sub, nil
	}

	sub.BillingCycle = cycle
	sub.Status = enums.SubscriptionStatusPending
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelSubscription records a user-initiated cancellation: do-not-renew,
// not immediate revocation. The subscription stays active until its period
// end passes.
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription for user")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only an active subscription can be cancelled")
	}
	if sub.CancelledAt != nil {
		return sub, nil
	}

	now := s.now().UTC()
	sub.CancelledAt = &now
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscription returns the user's subscription row, if any.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.repo.FindSubscriptionByUser(ctx, userID)
}

// FindSubscriptionByProviderSubID resolves an IPN-provider subscription id
// to a local row.
func (s *Service) FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	return s.repo.FindSubscriptionByProviderSubID(ctx, providerSubID)
}

// ListPlans returns the active subscription plans.
func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return s.repo.ListPlans(ctx)
}

// FindPlanByCycle resolves the active plan for a billing cycle.
func (s *Service) FindPlanByCycle(ctx context.Context, cycle enums.BillingCycle) (*models.Plan, error) {
	return s.repo.FindPlanByCycle(ctx, cycle)
}

// ListTokenPackages returns the purchasable token packages.
func (s *Service) ListTokenPackages(ctx context.Context) ([]models.TokenPackage, error) {
	return s.repo.ListTokenPackages(ctx)
}

// FindTokenPackageByID resolves a token package.
func (s *Service) FindTokenPackageByID(ctx context.Context, id string) (*models.TokenPackage, error) {
	return s.repo.FindTokenPackageByID(ctx, id)
}
