package models

import "time"

// RefreshToken represents a persisted refresh token session.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}

// AccountTokenPurpose separates email verification tokens from password reset tokens.
type AccountTokenPurpose string

const (
	TokenPurposeVerifyEmail   AccountTokenPurpose = "verify_email"
	TokenPurposePasswordReset AccountTokenPurpose = "password_reset"
)

// AccountToken is a single-use emailed token. Only the SHA-256 of the token is stored.
type AccountToken struct {
	ID        string              `db:"id"`
	UserID    string              `db:"user_id"`
	Purpose   AccountTokenPurpose `db:"purpose"`
	TokenHash string              `db:"token_hash"`
	ExpiresAt time.Time           `db:"expires_at"`
	Used      bool                `db:"used"`
	UsedAt    *time.Time          `db:"used_at"`
	CreatedAt time.Time           `db:"created_at"`
}

// Expired reports whether the token can no longer be redeemed at now.
func (t *AccountToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
