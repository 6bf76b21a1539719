package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	h "eventregistry/internal/delivery/http/helpers"
)

// RequireSecret guards machine-to-machine endpoints (payment webhooks, cron
// triggers) with a shared bearer secret. An empty secret rejects every request.
func RequireSecret(secret string) func(http.HandlerFunc) http.HandlerFunc {
	want := []byte(secret)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			auth := r.Header.Get("Authorization")
			if len(want) == 0 || !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing or invalid secret")
				return
			}
			got := []byte(strings.TrimSpace(auth[len(prefix):]))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing or invalid secret")
				return
			}
			next(w, r)
		}
	}
}
