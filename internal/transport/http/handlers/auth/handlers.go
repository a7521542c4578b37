package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboarding/internal/domain/auth"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
)

// Sessions is the slice of auth.Service the handlers drive.
type Sessions interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	Logout(ctx context.Context, user auth.UserContext) error
	Refresh(ctx context.Context, token string) (auth.Session, error)
	SetupMFA(ctx context.Context, user auth.UserContext) (auth.MFASetup, error)
	SetMFA(ctx context.Context, user auth.UserContext, code string, enabled bool) error
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, user auth.UserContext) (auth.Profile, error)
}

type Handler struct {
	Sessions     Sessions
	CookieName   string
	SecureCookie bool
}

func NewHandler(sessions Sessions, cookieName string, secure bool) *Handler {
	if cookieName == "" {
		cookieName = "session_token"
	}
	return &Handler{Sessions: sessions, CookieName: cookieName, SecureCookie: secure}
}

// RegisterRoutes mounts the public auth routes. Routes needing a session are
// wrapped with RequireAuth here so the router can mount them in one place.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/request-reset", h.HandleRequestReset)
	r.Post("/auth/reset", h.HandleResetPassword)
	r.Post("/auth/refresh", h.HandleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/auth/logout", h.HandleLogout)
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
		r.Post("/auth/mfa/disable", h.HandleMFADisable)
		r.Get("/me", h.HandleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	session, err := h.Sessions.Login(r.Context(), payload.Email, payload.Password, payload.MFACode)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setCookie(w, session.Token, session.ExpiresAt)
	api.Success(w, map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user": map[string]string{
			"id":       session.User.UserID,
			"tenantId": session.User.TenantID,
			"roleId":   session.User.RoleID,
			"role":     session.User.RoleName,
		},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Sessions.Logout(r.Context(), user); err != nil {
		slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
	}
	h.setCookie(w, "", time.Unix(0, 0))
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, h.CookieName)
	if token == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	session, err := h.Sessions.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setCookie(w, session.Token, session.ExpiresAt)
	api.Success(w, map[string]any{"token": session.Token, "expiresAt": session.ExpiresAt}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	setup, err := h.Sessions.SetupMFA(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enabled bool) {
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Sessions.SetMFA(r.Context(), user, payload.Code, enabled); err != nil {
		h.fail(w, r, err)
		return
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Sessions.RequestReset(r.Context(), payload.Email); err != nil {
		slog.Warn("password reset request failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Sessions.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	profile, err := h.Sessions.Me(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     h.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
	case errors.Is(err, auth.ErrMFANotSetUp):
		api.Fail(w, http.StatusBadRequest, "mfa_not_setup", "mfa setup required", requestID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa is not available", requestID)
	case errors.Is(err, auth.ErrSessionExpired):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", requestID)
	case errors.Is(err, auth.ErrInvalidResetToken):
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", requestID)
	case errors.Is(err, auth.ErrWeakPassword):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{
			"fields": []map[string]string{{"field": "newPassword", "reason": err.Error()}},
		}, requestID)
	case errors.Is(err, auth.ErrUserNotFound):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
	default:
		slog.Warn("auth request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "auth_error", "request failed", requestID)
	}
}
