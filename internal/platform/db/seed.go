package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onboarding/internal/domain/auth"
	"onboarding/internal/platform/config"
)

// Seed makes sure the default tenant, its roles and the first HR user exist.
// It runs in one transaction and can be repeated safely.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := checkRolePermissions(auth.RolePermissions, auth.DefaultPermissions); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tenantID, err := seedTenant(ctx, tx, cfg)
		if err != nil {
			return fmt.Errorf("seed tenant: %w", err)
		}
		roles, err := seedRoles(ctx, tx, tenantID)
		if err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if err := seedHRUser(ctx, tx, tenantID, roles[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return fmt.Errorf("seed hr user: %w", err)
		}
		return nil
	})
}

// checkRolePermissions fails when a role grants a permission that is not
// declared, which would otherwise be silently skipped by the inserts.
func checkRolePermissions(roles map[string][]string, declared []string) error {
	var unknown []string
	for role, perms := range roles {
		for _, perm := range perms {
			if !slices.Contains(declared, perm) {
				unknown = append(unknown, role+":"+perm)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("undeclared permissions: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func seedTenant(ctx context.Context, tx pgx.Tx, cfg config.Config) (string, error) {
	name := strings.TrimSpace(cfg.SeedTenantName)
	if name == "" {
		return "", errors.New("tenant name is empty")
	}
	var id string
	err := tx.QueryRow(ctx, `
    INSERT INTO tenants (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	if err != nil {
		return "", err
	}

	// Existing settings belong to HR; only fill them in for a new tenant.
	profile := strings.TrimSpace(cfg.DefaultFormProfile)
	if profile == "" {
		profile = "standard"
	}
	var emailFrom *string
	if from := strings.TrimSpace(cfg.EmailFrom); from != "" {
		emailFrom = &from
	}
	tag, err := tx.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, onboarding_profile, email_notifications_enabled, email_from)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (tenant_id) DO NOTHING
  `, id, profile, cfg.EmailEnabled, emailFrom)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() > 0 {
		slog.Info("seeded tenant", "tenant_id", id, "name", name, "profile", profile)
	}
	return id, nil
}

func seedRoles(ctx context.Context, tx pgx.Tx, tenantID string) (map[string]string, error) {
	if _, err := tx.Exec(ctx, `
    INSERT INTO permissions (key) SELECT unnest($1::text[])
    ON CONFLICT (key) DO NOTHING
  `, auth.DefaultPermissions); err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}

	ids := make(map[string]string, len(auth.RolePermissions))
	for name, perms := range auth.RolePermissions {
		var roleID string
		err := tx.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, name).Scan(&roleID)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO role_permissions (role_id, permission_id)
      SELECT $1, id FROM permissions WHERE key = ANY($2)
      ON CONFLICT DO NOTHING
    `, roleID, perms); err != nil {
			return nil, fmt.Errorf("grant %s: %w", name, err)
		}
		ids[name] = roleID
	}
	return ids, nil
}

func seedHRUser(ctx context.Context, tx pgx.Tx, tenantID, roleID, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		slog.Warn("seed hr user skipped, credentials not configured")
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id) VALUES ($1, $2, $3, $4)
    ON CONFLICT ((lower(email))) DO NOTHING
    RETURNING id
  `, tenantID, email, hash, roleID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("seeded hr user", "user_id", id, "email", email)
	return nil
}
