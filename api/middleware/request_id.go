package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds what a caller-supplied request id may occupy in
// logs; anything longer is replaced rather than truncated.
const maxRequestIDLen = 64

// RequestID propagates the caller's request id, or mints one, and binds it
// to the request logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
