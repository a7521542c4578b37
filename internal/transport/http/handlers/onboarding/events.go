package onboardinghandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"onboarding/internal/domain/events"
	"onboarding/internal/domain/onboarding"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleEvents streams FormStatusUpdated events as JSON text frames.
// Employees only see their own application; HR sees the tenant, optionally
// narrowed with ?employeeId=.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if h.Events == nil {
		api.Fail(w, http.StatusServiceUnavailable, "events_unavailable", "event stream is not configured", middleware.GetRequestID(r.Context()))
		return
	}

	filter := events.Filter{TenantID: user.TenantID}
	if user.IsHR() {
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	} else {
		view, err := h.Service.GetApplication(r.Context(), user, onboarding.SelfEmployeeID, "")
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.EmployeeID = view.Application.EmployeeID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.Events.Subscribe(filter, 0)
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: keeps pong deadlines fresh and notices the client going away.
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
