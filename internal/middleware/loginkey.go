package middleware

import (
	"crypto/subtle"
	"net/http"

	"bayt-storefront/pkg/apierror"
)

// LoginKeyHeader carries the admin login key.
const LoginKeyHeader = "X-Login-Key"

// NewLoginKeyMiddleware guards admin routes with a shared key.
// An empty key rejects every request.
func NewLoginKeyMiddleware(loginKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loginKey == "" {
				writeError(w, apierror.Forbidden("Admin endpoints are disabled"))
				return
			}

			provided := r.Header.Get(LoginKeyHeader)
			if provided == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Login-Key header."))
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(loginKey)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid login key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
