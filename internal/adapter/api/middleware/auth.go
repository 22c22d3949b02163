package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type subjectKey struct{}

// TokenValidator resolves a bearer token to the subject it was issued for.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// Subject returns the authenticated subject stored by Auth, if any.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok && sub != ""
}

// Auth is a middleware factory that checks the bearer token in the
// Authorization header. A present but invalid token is always rejected with
// 401. A missing token is rejected only when required is true, so routes
// allowing public reads can still see who is calling when they can.
func Auth(v TokenValidator, logger *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				if required {
					logger.Warn("bearer token missing from request", "remote_addr", r.RemoteAddr)
					w.Header().Set("WWW-Authenticate", `Bearer realm="watch-tower"`)
					http.Error(w, "Unauthorized: token required", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			sub, err := v.Validate(r.Context(), token)
			if err != nil {
				logger.Warn("invalid bearer token", "remote_addr", r.RemoteAddr, "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="watch-tower"`)
				http.Error(w, "Unauthorized: invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
