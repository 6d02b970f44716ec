package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"rostersync/pkg/requestcontext"
)

// RequireAdminToken rejects requests without a matching X-Admin-Token. An
// empty expected token disables the check. X-Actor, when present, is
// recorded as the caller for audit fields such as a roster's uploader.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expectedToken != "" {
				token := r.Header.Get("X-Admin-Token")
				if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
					logger.WarnContext(ctx, "admin token mismatch",
						"request_id", GetRequestID(ctx),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
					return
				}
			}
			if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
				ctx = requestcontext.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
