package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/transport/http/api"
)

// SessionChecker reports whether a token's session is still live.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Auth attaches the caller to the context when a valid bearer token is
// present. Requests without one pass through; route guards reject them.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if sessions != nil {
				active, err := sessions.SessionActive(r.Context(), claims.SessionID)
				if err != nil {
					slog.Error("session lookup failed", "sessionId", claims.SessionID, "err", err)
					api.Fail(w, http.StatusInternalServerError, "session_check_failed", "failed to verify session", GetRequestID(r.Context()))
					return
				}
				if !active {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := WithUser(r.Context(), auth.UserContext{
				UserID:    claims.UserID,
				TenantID:  claims.TenantID,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken falls back to ?access_token= for websocket upgrades, where
// browsers cannot set headers.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}
