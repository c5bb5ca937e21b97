package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/config"
)

// Seed makes sure the configured tenant and its first Admin exist.
func Seed(ctx context.Context, pool *Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return err
	}
	return ensureAdminUser(ctx, pool, tenantID, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureTenant(ctx context.Context, pool *Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `
    INSERT INTO tenants (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	return id, err
}

func ensureAdminUser(ctx context.Context, pool *Pool, tenantID, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		slog.Info("seed admin skipped, SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD unset")
		return nil
	}

	var existing string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = $1", email).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role, first_name, last_name, position, hire_date)
    VALUES ($1, $2, $3, $4, 'System', 'Admin', 'Administrator', CURRENT_DATE)
  `, tenantID, email, hash, auth.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("seed admin created", "email", email)
	return nil
}
