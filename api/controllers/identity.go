package controllers

import (
	"net/http"

	"github.com/google/uuid"

	pkgerrors "github.com/lumenchat/billing-backend/pkg/errors"
)

const userIDHeader = "X-User-Id"

// userIDFromRequest resolves the acting user from the gateway-injected
// identity header. Session handling lives upstream of this service.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}
