package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type subscriptionService interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type subscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PlanID             *string    `json:"plan_id,omitempty"`
	BillingCycle       string     `json:"billing_cycle"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

func newSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		BillingCycle:       string(sub.BillingCycle),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelledAt:        sub.CancelledAt,
	}
}

// SubscriptionFetch returns the caller's subscription state.
func SubscriptionFetch(svc subscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.GetSubscription(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription"))
			return
		}

		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// SubscriptionCancel turns off renewal while leaving the paid period intact.
func SubscriptionCancel(svc subscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.CancelSubscription(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}
