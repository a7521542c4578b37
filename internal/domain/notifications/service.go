package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Settings is the per-tenant email configuration HR manages.
type Settings struct {
	EmailEnabled bool   `json:"emailEnabled"`
	EmailFrom    string `json:"emailFrom"`
}

// Service stores in-app notifications and mirrors them by email when the
// tenant has email enabled. Email failures never fail the notification.
type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

func (s *Service) Create(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	return s.deliver(ctx, s.mailSettings(ctx, tenantID), tenantID, userID, ntype, title, body)
}

// CreateForRole notifies every active user holding roleName in the tenant.
// Per-user failures are collected rather than stopping the fan-out.
func (s *Service) CreateForRole(ctx context.Context, tenantID, roleName, ntype, title, body string) error {
	userIDs, err := s.store.UserIDsByRole(ctx, tenantID, roleName)
	if err != nil {
		return fmt.Errorf("users for role %s: %w", roleName, err)
	}
	settings := s.mailSettings(ctx, tenantID)
	var errs []error
	for _, userID := range userIDs {
		if err := s.deliver(ctx, settings, tenantID, userID, ntype, title, body); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) deliver(ctx context.Context, settings Settings, tenantID, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, tenantID, userID, ntype, title, body); err != nil {
		return err
	}
	if !settings.EmailEnabled {
		return nil
	}
	email, err := s.store.UserEmail(ctx, tenantID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "user_id", userID, "err", err)
		return nil
	}
	if strings.TrimSpace(email) == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, settings.EmailFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "type", ntype, "user_id", userID, "err", err)
	}
	return nil
}

// mailSettings resolves what deliver needs. Email is off when no mailer is
// wired or the settings cannot be read.
func (s *Service) mailSettings(ctx context.Context, tenantID string) Settings {
	if s.Mailer == nil {
		return Settings{}
	}
	settings, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		slog.Debug("email settings unavailable", "tenant_id", tenantID, "err", err)
		return Settings{}
	}
	if settings.EmailFrom == "" {
		settings.EmailFrom = s.DefaultFrom
	}
	return settings
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, tenantID, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, userID string) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, userID)
}

func (s *Service) CountUnread(ctx context.Context, tenantID, userID string) (int, error) {
	return s.store.CountUnread(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, tenantID, userID, notificationID)
}

// MarkAllRead returns how many notifications changed.
func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, tenantID, userID)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	enabled, from, err := s.store.EmailSettings(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}
	return Settings{EmailEnabled: enabled, EmailFrom: from}, nil
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, settings Settings) error {
	return s.store.UpdateSettings(ctx, tenantID, settings.EmailEnabled, strings.TrimSpace(settings.EmailFrom))
}
