package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/pkg/db/models"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
)

type catalogService interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	ListTokenPackages(ctx context.Context) ([]models.TokenPackage, error)
}

type planResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BillingCycle string          `json:"billing_cycle"`
	PriceAmount  decimal.Decimal `json:"price_amount"`
	CurrencyCode string          `json:"currency_code"`
	TokenGrant   int64           `json:"token_grant"`
	Features     []string        `json:"features"`
}

type tokenPackageResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	TokenCount   int64           `json:"token_count"`
	BonusTokens  int64           `json:"bonus_tokens"`
	PriceAmount  decimal.Decimal `json:"price_amount"`
	CurrencyCode string          `json:"currency_code"`
}

// PlanList returns the purchasable subscription plans.
func PlanList(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		plans, err := svc.ListPlans(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]planResponse, 0, len(plans))
		for _, plan := range plans {
			out = append(out, planResponse{
				ID:           plan.ID,
				Name:         plan.Name,
				BillingCycle: string(plan.BillingCycle),
				PriceAmount:  plan.PriceAmount,
				CurrencyCode: plan.CurrencyCode,
				TokenGrant:   plan.TokenGrant,
				Features:     plan.Features,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// TokenPackageList returns the purchasable token packages.
func TokenPackageList(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		packages, err := svc.ListTokenPackages(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]tokenPackageResponse, 0, len(packages))
		for _, pkg := range packages {
			out = append(out, tokenPackageResponse{
				ID:           pkg.ID,
				Name:         pkg.Name,
				TokenCount:   pkg.TokenCount,
				BonusTokens:  pkg.BonusTokens,
				PriceAmount:  pkg.PriceAmount,
				CurrencyCode: pkg.CurrencyCode,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
