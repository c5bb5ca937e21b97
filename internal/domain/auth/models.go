package auth

import "time"

const (
	UserStatusActive = "active"

	MinPasswordLength = 8
	ResetTokenTTL     = 2 * time.Hour
)

type AuthUser struct {
	ID           string
	TenantID     string
	Email        string
	Role         string
	Status       string
	PasswordHash string
	MFAEnabled   bool
	MFASecretEnc []byte
}

type LoginInput struct {
	Email    string
	Password string
	MFACode  string
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	TenantID  string    `json:"tenantId"`
	Role      string    `json:"role"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// ResetRequest is returned to the caller so it can deliver the token out of band.
type ResetRequest struct {
	UserID string
	Email  string
	Token  string
}
