package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"onboarding/internal/domain/auth"
)

type staticPermissions map[string][]string

func (p staticPermissions) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	if roleID == "broken" {
		return false, errors.New("db down")
	}
	for _, perm := range p[roleID] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

func serveAs(t *testing.T, h http.Handler, user *auth.UserContext) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != nil {
		req = req.WithContext(WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequirePermission(t *testing.T) {
	perms := staticPermissions{"r-hr": {auth.PermOnboardingReview}}
	h := RequirePermission(auth.PermOnboardingReview, perms)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name string
		user *auth.UserContext
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"allowed", &auth.UserContext{UserID: "u1", RoleID: "r-hr"}, http.StatusNoContent},
		{"denied", &auth.UserContext{UserID: "u2", RoleID: "r-emp"}, http.StatusForbidden},
		{"store error", &auth.UserContext{UserID: "u3", RoleID: "broken"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := serveAs(t, h, tc.user); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRequireHR(t *testing.T) {
	h := RequireHR(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if got := serveAs(t, h, &auth.UserContext{UserID: "u1", RoleName: auth.RoleEmployee}); got != http.StatusForbidden {
		t.Fatalf("expected 403 for employee, got %d", got)
	}
	if got := serveAs(t, h, &auth.UserContext{UserID: "u2", RoleName: auth.RoleHR}); got != http.StatusNoContent {
		t.Fatalf("expected 204 for hr, got %d", got)
	}
}

func TestRequirePermissionAcceptsAnyListed(t *testing.T) {
	perms := staticPermissions{"r-emp": {auth.PermEmployeesRead}}
	h := RequirePermission(auth.PermEmployeesWrite, perms, auth.PermEmployeesRead)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if got := serveAs(t, h, &auth.UserContext{UserID: "u1", RoleID: "r-emp"}); got != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", got)
	}
	if got := serveAs(t, h, &auth.UserContext{UserID: "u2", RoleID: "r-none"}); got != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", got)
	}
}
