package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/pkg/httputil"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims represents the token claims extracted by the auth middleware.
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   int    `json:"role"`
}

// TokenValidator validates a token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth validates the Authorization header and injects the claims into the
// request context. The storefront API sends the raw token; a "Bearer "
// prefix is tolerated.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				httputil.WriteError(w, r, http.StatusUnauthorized, "", "missing authorization header")
				return
			}

			claims, err := validate(token)
			if err != nil {
				httputil.WriteError(w, r, http.StatusUnauthorized, "", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the authenticated claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}
