package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenchat/billing-backend/internal/paymentevent"
	dbpkg "github.com/lumenchat/billing-backend/pkg/db"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	"github.com/lumenchat/billing-backend/pkg/enums"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/outbox"
)

// eventEmitter stages a domain event inside the caller's transaction.
type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo   Repository
	Tx     dbpkg.TxRunner
	Outbox eventEmitter
	Logg   *logger.Logger
}

// Service applies token-purchase payments to the ledger and balance.
type Service struct {
	repo   Repository
	tx     dbpkg.TxRunner
	outbox eventEmitter
	logg   *logger.Logger
}

// NewService builds a ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logg,
	}, nil
}

// TokenPurchase is a verified, classified token payment plus the grant the
// catalog resolved for its package.
type TokenPurchase struct {
	Event         paymentevent.Event
	TokensGranted int64
}

type tokensGrantedPayload struct {
	UserID     uuid.UUID `json:"userId"`
	PackageID  string    `json:"packageId"`
	Tokens     int64     `json:"tokens"`
	ExternalID string    `json:"externalId"`
}

// ApplyTokenPurchase finalizes a token purchase. The ledger insert and the
// balance increment commit together or not at all; a unique violation on the
// external id means a prior delivery already applied this payment.
func (s *Service) ApplyTokenPurchase(ctx context.Context, purchase TokenPurchase) (paymentevent.Outcome, error) {
	event := purchase.Event

	if event.Lifecycle != enums.PaymentLifecycleCompleted {
		// pending/failed token payments carry no persisted intermediate state
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"external_id": event.ExternalID,
				"lifecycle":   event.Lifecycle,
			})
			s.logg.Info(logCtx, "token purchase not complete, nothing to apply")
		}
		return paymentevent.OutcomeIgnored, nil
	}

	currency := event.Currency
	if currency == "" {
		currency = "USD"
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn := &models.FinancialTransaction{
			ExternalID:    event.ExternalID,
			UserID:        event.Subject.UserID,
			Provider:      event.Provider,
			Kind:          enums.TransactionKindTokenPurchase,
			Amount:        event.GrossAmount,
			CurrencyCode:  currency,
			TokensGranted: purchase.TokensGranted,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.AddToBalance(ctx, event.Subject.UserID, purchase.TokensGranted); err != nil {
			return err
		}

		if s.outbox != nil {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventTokensGranted,
				AggregateType: enums.OutboxAggregateTokenLedger,
				AggregateID:   event.Subject.UserID,
				Source: &outbox.SourceRef{
					UserID:     event.Subject.UserID,
					Provider:   event.Provider.String(),
					ExternalID: event.ExternalID,
				},
				Data: tokensGrantedPayload{
					UserID:     event.Subject.UserID,
					PackageID:  event.Subject.PackageID,
					Tokens:     purchase.TokensGranted,
					ExternalID: event.ExternalID,
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

// Balance returns the user's current spendable token total.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}
