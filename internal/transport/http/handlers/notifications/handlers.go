package notificationshandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"onboarding/internal/domain/notifications"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
	"onboarding/internal/transport/http/shared"
)

const unreadCountHeader = "X-Unread-Count"

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.With(middleware.RequireHR).Get("/settings", h.handleSettings)
		r.With(middleware.RequireHR).Put("/settings", h.handleUpdateSettings)
	})
}

// handleList returns the caller's inbox, newest first. Totals travel in
// headers so the body stays a plain array.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, 500)
	items, err := h.Service.List(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		slog.Error("notification list failed", "user_id", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", requestID)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	if total, err := h.Service.Count(r.Context(), user.TenantID, user.UserID); err == nil {
		page.SetTotal(w, total)
	} else {
		slog.Warn("notification count failed", "err", err)
	}
	if unread, err := h.Service.CountUnread(r.Context(), user.TenantID, user.UserID); err == nil {
		w.Header().Set(unreadCountHeader, strconv.Itoa(unread))
	}
	api.Success(w, items, requestID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	updated, err := h.Service.MarkAllRead(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"status": "read", "updated": updated}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	settings, err := h.Service.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, settings, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload notifications.Settings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Email("emailFrom", payload.EmailFrom)
	if payload.EmailEnabled {
		v.Required("emailFrom", payload.EmailFrom, "is required when email is enabled")
	}
	if v.Reject(w, requestID) {
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), user.TenantID, payload); err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to update settings", requestID)
		return
	}
	api.Success(w, payload, requestID)
}
