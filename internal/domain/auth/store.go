package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const authUserColumns = `id, tenant_id, email, role, status, password_hash, mfa_enabled, mfa_secret_enc`

func scanAuthUser(row pgx.Row) (AuthUser, error) {
	var out AuthUser
	err := row.Scan(&out.ID, &out.TenantID, &out.Email, &out.Role, &out.Status, &out.PasswordHash, &out.MFAEnabled, &out.MFASecretEnc)
	return out, err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	return scanAuthUser(s.DB.QueryRow(ctx, `
    SELECT `+authUserColumns+`
    FROM users
    WHERE lower(email) = $1 AND deleted_at IS NULL
  `, strings.ToLower(strings.TrimSpace(email))))
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (AuthUser, error) {
	return scanAuthUser(s.DB.QueryRow(ctx, `
    SELECT `+authUserColumns+`
    FROM users
    WHERE id = $1 AND deleted_at IS NULL
  `, userID))
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) CreateSession(ctx context.Context, sessionID, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (id, user_id, token_hash, expires_at)
    VALUES ($1, $2, $3, $4)
  `, sessionID, userID, tokenHash, expires)
	return err
}

func (s *Store) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	var active bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM sessions
      WHERE id = $1 AND expires_at > now() AND revoked_at IS NULL
    )
  `, sessionID).Scan(&active)
	return active, err
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", sessionID)
	return err
}

func (s *Store) DeleteStaleSessions(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM sessions s
    USING users u
    WHERE s.user_id = u.id
      AND u.tenant_id = $1
      AND (s.expires_at < $2 OR (s.revoked_at IS NOT NULL AND s.revoked_at < $2))
  `, tenantID, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

// ConsumePasswordReset marks the token used and sets the new hash in one
// transaction, returning the affected user.
func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (string, error) {
	var userID string
	err := querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		err := q.QueryRow(ctx, `
      UPDATE password_resets
      SET used_at = now()
      WHERE token = $1 AND expires_at > now() AND used_at IS NULL
      RETURNING user_id
    `, tokenHash).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", newPasswordHash, userID); err != nil {
			return err
		}
		_, err = q.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
		return err
	})
	return userID, err
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	return err
}
