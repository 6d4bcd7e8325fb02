// Package server assembles the HTTP surface: route table, middleware chain,
// and the API-key-guarded admin endpoints.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/irsescapeplan/platform/internal/auth/apikey"
)

// RequireAPIKey guards admin routes. Keys are accepted from the X-API-Key
// header or an Authorization: Bearer value; there is no query-parameter
// fallback, admin keys do not belong in URLs.
func RequireAPIKey(validator *apikey.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				writeAuthError(w, http.StatusServiceUnavailable, "admin endpoints unavailable: no key store")
				return
			}
			key := extractAPIKey(r)
			if key == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			_, err := validator.Validate(r.Context(), key)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, apikey.ErrInvalidKey):
				writeAuthError(w, http.StatusUnauthorized, "invalid api key")
			case errors.Is(err, apikey.ErrExpiredKey):
				writeAuthError(w, http.StatusUnauthorized, "expired api key")
			default:
				writeAuthError(w, http.StatusInternalServerError, "authentication error")
			}
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
