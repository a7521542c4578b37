package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"onboarding/internal/domain/auth"
	"onboarding/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// accessCheck decides whether an authenticated user may continue.
type accessCheck func(ctx context.Context, user auth.UserContext) (bool, error)

func guard(check accessCheck, deniedMessage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}
			allowed, err := check(r.Context(), user)
			if err != nil {
				slog.Error("permission check failed", "user_id", user.UserID, "role_id", user.RoleID, "err", err)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
				return
			}
			if !allowed {
				api.Fail(w, http.StatusForbidden, "forbidden", deniedMessage, requestID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits users whose role holds any of the permissions.
func RequirePermission(permission string, store PermissionStore, more ...string) func(http.Handler) http.Handler {
	wanted := append([]string{permission}, more...)
	return guard(func(ctx context.Context, user auth.UserContext) (bool, error) {
		for _, perm := range wanted {
			allowed, err := store.HasPermission(ctx, user.RoleID, perm)
			if err != nil {
				return false, err
			}
			if allowed {
				return true, nil
			}
		}
		return false, nil
	}, "insufficient permissions")
}

// RequireHR admits HR and system administrators only.
var RequireHR = guard(func(_ context.Context, user auth.UserContext) (bool, error) {
	return user.IsHR(), nil
}, "hr access required")
