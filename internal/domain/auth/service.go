package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const mfaIssuer = "HRDesk"

// SecretSealer encrypts MFA seeds at rest.
type SecretSealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(sealed []byte) (string, error)
}

type Service struct {
	Store  StoreAPI
	Crypto SecretSealer
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func NewService(store StoreAPI, sealer SecretSealer, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{Store: store, Crypto: sealer, Secret: secret, TTL: ttl, Now: time.Now}
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	user, err := s.Store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if user.Status != UserStatusActive {
		return Session{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, in.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if strings.TrimSpace(in.MFACode) == "" {
			return Session{}, ErrMFARequired
		}
		if !s.mfaReady() {
			return Session{}, ErrMFAUnavailable
		}
		secret, err := s.Crypto.DecryptString(user.MFASecretEnc)
		if err != nil {
			return Session{}, fmt.Errorf("decrypt mfa secret: %w", err)
		}
		if !totp.Validate(strings.TrimSpace(in.MFACode), secret) {
			return Session{}, ErrMFAInvalid
		}
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return Session{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("last login update failed", "userId", user.ID, "err", err)
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.Store.RevokeSession(ctx, user.SessionID)
}

// Refresh revokes the caller's session and issues a new one, picking up role
// or status changes made since the last login.
func (s *Service) Refresh(ctx context.Context, caller UserContext) (Session, error) {
	if caller.SessionID == "" {
		return Session{}, ErrSessionInvalid
	}
	active, err := s.Store.SessionActive(ctx, caller.SessionID)
	if err != nil {
		return Session{}, err
	}
	if !active {
		return Session{}, ErrSessionInvalid
	}
	user, err := s.Store.FindUserByID(ctx, caller.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionInvalid
	}
	if err != nil {
		return Session{}, err
	}
	if user.Status != UserStatusActive {
		return Session{}, ErrSessionInvalid
	}
	if err := s.Store.RevokeSession(ctx, caller.SessionID); err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// SessionActive implements the session check used by the auth middleware.
func (s *Service) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	return s.Store.SessionActive(ctx, sessionID)
}

// RequestReset returns nil without error when the email is unknown, so callers
// cannot discover which accounts exist.
func (s *Service) RequestReset(ctx context.Context, email string) (*ResetRequest, error) {
	user, err := s.Store.FindUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Status != UserStatusActive {
		return nil, nil
	}
	token, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	if err := s.Store.CreatePasswordReset(ctx, user.ID, HashToken(token), s.Now().Add(ResetTokenTTL)); err != nil {
		return nil, err
	}
	return &ResetRequest{UserID: user.ID, Email: user.Email, Token: token}, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.Store.ConsumePasswordReset(ctx, HashToken(token), hash)
	return err
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.Store.UpdatePassword(ctx, userID, hash)
}

func (s *Service) SetupMFA(ctx context.Context, userID string) (MFASetup, error) {
	if !s.mfaReady() {
		return MFASetup{}, ErrMFAUnavailable
	}
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return MFASetup{}, err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	sealed, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.Store.UpdateMFASecret(ctx, userID, sealed); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	return s.toggleMFA(ctx, userID, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	return s.toggleMFA(ctx, userID, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, userID, code string, enabled bool) error {
	if !s.mfaReady() {
		return ErrMFAUnavailable
	}
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(user.MFASecretEnc) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.Crypto.DecryptString(user.MFASecretEnc)
	if err != nil {
		return fmt.Errorf("decrypt mfa secret: %w", err)
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFAEnabled(ctx, userID, enabled)
}

// CleanupSessions drops sessions that expired or were revoked more than a day ago.
func (s *Service) CleanupSessions(ctx context.Context, tenantID string) (any, error) {
	deleted, err := s.Store.DeleteStaleSessions(ctx, tenantID, s.Now().Add(-24*time.Hour))
	return map[string]any{"deleted": deleted}, err
}

func (s *Service) issue(ctx context.Context, user AuthUser) (Session, error) {
	sessionID := uuid.NewString()
	expires := s.Now().Add(s.TTL)
	token, err := GenerateToken(s.Secret, Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Role:      user.Role,
		SessionID: sessionID,
	}, s.TTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.Store.CreateSession(ctx, sessionID, user.ID, HashToken(token), expires); err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, UserID: user.ID, TenantID: user.TenantID, Role: user.Role}, nil
}

func (s *Service) mfaReady() bool {
	return s.Crypto != nil && s.Crypto.Configured()
}
