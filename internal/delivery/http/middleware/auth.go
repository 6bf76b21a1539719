package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok && p.UserID != ""
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// RequireAuth verifies the bearer token and stores its principal, roles
// included, in the request context. Rejected requests get 401 and are logged
// at warn level with the reason; the token itself is never logged.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string, err error) {
				attrs := []any{"reason", reason, "method", r.Method, "path", r.URL.Path}
				if id := RequestIDFromContext(r.Context()); id != "" {
					attrs = append(attrs, "request_id", id)
				}
				if err != nil {
					attrs = append(attrs, "error", err)
				}
				logger.Warn("authentication failed", attrs...)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, reason)
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				reject("missing authorization header", nil)
				return
			}
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				reject("invalid authorization format", nil)
				return
			}
			token = strings.TrimSpace(token)
			if token == "" {
				reject("missing token", nil)
				return
			}
			principal, err := verifier.Verify(token)
			if err != nil || principal.UserID == "" {
				reject("invalid or expired token", err)
				return
			}
			next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		}
	}
}
