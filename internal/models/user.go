package models

import "time"

// UserRole distinguishes clients from lawyers.
type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleLawyer UserRole = "lawyer"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleLawyer
}

// User represents an account stored in the users table. Lawyer-only fields are nil for clients.
type User struct {
	ID               string     `db:"id" json:"id"`
	Username         string     `db:"username" json:"username"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	FullName         string     `db:"full_name" json:"full_name"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Role             UserRole   `db:"role" json:"role"`
	BarCouncilNumber *string    `db:"bar_council_number" json:"bar_council_number,omitempty"`
	Specialization   *string    `db:"specialization" json:"specialization,omitempty"`
	Active           bool       `db:"active" json:"active"`
	Verified         bool       `db:"verified" json:"verified"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLawyer reports whether the account may publish availability.
func (u *User) IsLawyer() bool {
	return u != nil && u.Role == RoleLawyer
}

// LawyerProfile is the public directory view of a lawyer.
type LawyerProfile struct {
	ID               string  `db:"id" json:"id"`
	FullName         string  `db:"full_name" json:"full_name"`
	Email            string  `db:"email" json:"email"`
	Phone            *string `db:"phone" json:"phone,omitempty"`
	BarCouncilNumber *string `db:"bar_council_number" json:"bar_council_number,omitempty"`
	Specialization   *string `db:"specialization" json:"specialization,omitempty"`
}

// LawyerFilter narrows the lawyer directory.
type LawyerFilter struct {
	Search         string
	Specialization string
	Page           int
	PageSize       int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
