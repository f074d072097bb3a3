package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/api/responses"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type balanceService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// TokenBalance returns the caller's spendable token balance.
func TokenBalance(svc balanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Balance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{Balance: balance})
	}
}
