package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindUserByEmail(ctx context.Context, email string) (AuthUser, error)
	FindUserByID(ctx context.Context, userID string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	CreateSession(ctx context.Context, sessionID, userID, tokenHash string, expires time.Time) error
	SessionActive(ctx context.Context, sessionID string) (bool, error)
	RevokeSession(ctx context.Context, sessionID string) error
	DeleteStaleSessions(ctx context.Context, tenantID string, before time.Time) (int64, error)
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (string, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
}
