package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bayt-storefront/pkg/uid"
)

func TestSessionIssuesAndKeepsIDs(t *testing.T) {
	var seen string
	h := Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := rec.Header().Get(SessionHeader)
	if !uid.IsValid(issued) || seen != issued {
		t.Fatalf("expected a fresh session ID, header=%q ctx=%q", issued, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, issued)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != issued || rec.Header().Get(SessionHeader) != issued {
		t.Fatalf("expected session ID to be kept")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen == "not-a-uuid" {
		t.Fatalf("malformed session ID must be replaced")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected caller request ID to be reused, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !uid.IsValid(seen) {
		t.Fatalf("oversized request ID must be replaced, got %q", seen)
	}
}

func TestLoginKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{"disabled", "", "anything", http.StatusForbidden},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"wrong", "secret", "guess", http.StatusUnauthorized},
		{"valid", "secret", "secret", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tt.provided != "" {
				req.Header.Set(LoginKeyHeader, tt.provided)
			}
			rec := httptest.NewRecorder()
			NewLoginKeyMiddleware(tt.configured)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"INTERNAL_ERROR"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
