package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterUserRequest creates a client account.
type RegisterUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	FullName string  `json:"full_name" validate:"required,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

// RegisterLawyerRequest creates a lawyer account; the bar council number is mandatory.
type RegisterLawyerRequest struct {
	RegisterUserRequest
	BarCouncilNumber string  `json:"bar_council_number" validate:"required,max=64"`
	Specialization   *string `json:"specialization" validate:"omitempty,max=255"`
}

// LoginRequest accepts either an email address or a username in Identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// EmailRequest asks for a password reset or a fresh verification link.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UpdateProfileRequest edits the caller's profile. A password change needs both
// CurrentPassword and NewPassword.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Specialization  *string `json:"specialization" validate:"omitempty,max=255"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=6"`
}

// ChangesPassword reports whether either password field was sent.
func (r UpdateProfileRequest) ChangesPassword() bool {
	return r.CurrentPassword != nil || r.NewPassword != nil
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID               string   `json:"id"`
	Username         string   `json:"username"`
	Email            string   `json:"email"`
	FullName         string   `json:"full_name"`
	Role             UserRole `json:"role"`
	Phone            *string  `json:"phone,omitempty"`
	BarCouncilNumber *string  `json:"bar_council_number,omitempty"`
	Specialization   *string  `json:"specialization,omitempty"`
	Verified         bool     `json:"verified"`
}

// NewUserInfo projects a stored user into the response shape.
func NewUserInfo(u *User) UserInfo {
	info := UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role, Phone: u.Phone, Verified: u.Verified}
	if u.IsLawyer() {
		info.BarCouncilNumber = u.BarCouncilNumber
		info.Specialization = u.Specialization
	}
	return info
}

// JWTClaims is the session passed explicitly to every service call.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsLawyer reports whether the session belongs to a lawyer.
func (c *JWTClaims) IsLawyer() bool {
	return c != nil && c.Role == RoleLawyer
}
