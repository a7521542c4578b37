package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/onboarding/download-i9-form/me", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store on api responses, got %q", got)
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS in production")
	}

	rec = httptest.NewRecorder()
	SecureHeaders(false)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("Cache-Control") != "" {
		t.Fatalf("did not expect cache header outside the api")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("did not expect HSTS outside production")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff")
	}
}
