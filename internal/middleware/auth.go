package middleware

import (
	"context"
	"net/http"
	"strings"

	"medibot-backend/internal/auth"
	"medibot-backend/internal/transport"
)

type userIDKey struct{}
type adminKey struct{}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func RequireUser(manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "auth not configured", nil)
				return
			}

			token := bearerToken(r)
			if token == "" {
				transport.WriteError(w, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := manager.Parse(token)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
			ctx = context.WithValue(ctx, adminKey{}, claims.Admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be nested inside RequireUser.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				transport.WriteError(w, http.StatusForbidden, "admin access required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(userIDKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	if v := ctx.Value(adminKey{}); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
