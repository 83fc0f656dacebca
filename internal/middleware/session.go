package middleware

import (
	"context"
	"net/http"

	"bayt-storefront/pkg/uid"
)

// SessionHeader carries the renderer's session ID in both directions.
const SessionHeader = "X-Session-ID"

// SessionIDKey is the context key for the session ID.
const SessionIDKey contextKey = "session_id"

// Session assigns each renderer a session. A missing or malformed
// X-Session-ID gets a fresh UUID, echoed back in the response header.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if !uid.IsValid(sessionID) {
			sessionID = uid.New()
		}

		w.Header().Set(SessionHeader, sessionID)

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID retrieves the session ID from context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
