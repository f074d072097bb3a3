package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/lumenchat/billing-backend/api/responses"
	"github.com/lumenchat/billing-backend/pkg/config"
	"github.com/lumenchat/billing-backend/pkg/db"
	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
	"github.com/lumenchat/billing-backend/pkg/logger"
	"github.com/lumenchat/billing-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LumenChat-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LumenChat-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := []struct {
			name string
			ping func(context.Context) error
		}{
			{"database", pingFn(dbP)},
			{"redis", pingFn(redisP)},
		}

		for _, check := range checks {
			if check.ping == nil {
				continue
			}
			if err := check.ping(ctx); err != nil {
				if logg != nil {
					logCtx := logg.WithField(ctx, "dependency", check.name)
					logg.Error(logCtx, "readiness check failed", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

func pingFn(p interface{ Ping(context.Context) error }) func(context.Context) error {
	if p == nil {
		return nil
	}
	return p.Ping
}
