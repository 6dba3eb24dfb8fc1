package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// RequestLogger stores a logger carrying the caller's identity and trace in
// the request context. Mount it after Auth so the claims are available;
// handlers fetch it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			l := base
			if c := ClaimsFromContext(ctx); c != nil {
				ctx = logger.WithUserID(ctx, c.UserID)
				if c.Email != "" {
					l = l.With(slog.String("email", c.Email))
				}
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, l))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
