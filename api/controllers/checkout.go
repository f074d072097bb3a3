package controllers

import (
	"context"
	"net/http"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/api/validators"
	checkoutsvc "github.com/lumenchat/billing-backend/internal/checkout"
	"github.com/lumenchat/billing-backend/pkg/enums"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type checkoutService interface {
	StartSubscription(ctx context.Context, params checkoutsvc.StartSubscriptionParams) (*checkoutsvc.Session, error)
	StartTokens(ctx context.Context, params checkoutsvc.StartTokensParams) (*checkoutsvc.Session, error)
}

type subscriptionCheckoutRequest struct {
	BillingCycle string `json:"billing_cycle" validate:"required"`
}

type tokenCheckoutRequest struct {
	PackageID string `json:"package_id" validate:"required"`
}

// SubscriptionCheckout opens a hosted invoice for a subscription plan.
func SubscriptionCheckout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload subscriptionCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cycle, err := enums.ParseBillingCycle(payload.BillingCycle)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle"))
			return
		}

		session, err := svc.StartSubscription(ctx, checkoutsvc.StartSubscriptionParams{
			UserID:       userID,
			BillingCycle: cycle,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// TokenCheckout opens a hosted invoice for a token package.
func TokenCheckout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload tokenCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.StartTokens(ctx, checkoutsvc.StartTokensParams{
			UserID:    userID,
			PackageID: payload.PackageID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}
