package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okil-ai/consult-api/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, phone, role, bar_council_number, specialization, active, verified, last_login, created_at, updated_at`

// UserRepository provides database access for accounts and sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByIdentifier returns a user whose email or username matches identifier (case-insensitive).
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(identifier)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Exists reports whether an account already uses the email, username or bar council number.
func (r *UserRepository) Exists(ctx context.Context, email, username string, barCouncilNumber *string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM users
	WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($2) OR ($3::text IS NOT NULL AND bar_council_number = $3)
)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, username, barCouncilNumber); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	const query = `INSERT INTO users (id, username, email, password_hash, full_name, phone, role, bar_council_number, specialization, active, verified, created_at, updated_at)
VALUES (:id, :username, :email, :password_hash, :full_name, :phone, :role, :bar_council_number, :specialization, :active, :verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdateProfile writes the editable profile fields of user.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	const query = `UPDATE users SET full_name = :full_name, phone = :phone, specialization = :specialization, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectAffected(result)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, ts time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, hash, ts)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(result)
}

// MarkVerified flags the account's email as confirmed.
func (r *UserRepository) MarkVerified(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET verified = TRUE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, ts)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return expectAffected(result)
}

// FindLawyer returns the active lawyer with id.
func (r *UserRepository) FindLawyer(ctx context.Context, id string) (*models.LawyerProfile, error) {
	const query = `SELECT id, full_name, email, phone, bar_council_number, specialization FROM users WHERE id = $1 AND role = 'lawyer' AND active = TRUE`
	var lawyer models.LawyerProfile
	if err := r.db.GetContext(ctx, &lawyer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lawyer: %w", err)
	}
	return &lawyer, nil
}

// ListLawyers returns the lawyer directory page with the total count.
func (r *UserRepository) ListLawyers(ctx context.Context, filter models.LawyerFilter) ([]models.LawyerProfile, int, error) {
	base := `FROM users WHERE role = 'lawyer' AND active = TRUE`
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args))
	}
	if filter.Specialization != "" {
		args = append(args, "%"+strings.ToLower(filter.Specialization)+"%")
		base += fmt.Sprintf(" AND LOWER(specialization) LIKE $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	listQuery := fmt.Sprintf(`SELECT id, full_name, email, phone, bar_council_number, specialization %s ORDER BY full_name ASC LIMIT %d OFFSET %d`,
		base, pageSize, (page-1)*pageSize)
	lawyers := make([]models.LawyerProfile, 0)
	if err := r.db.SelectContext(ctx, &lawyers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list lawyers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count lawyers: %w", err)
	}
	return lawyers, total, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked. Returns sql.ErrNoRows when it was already revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, revokedAt); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAccountToken stores an emailed token after pruning the user's expired ones
// of the same purpose.
func (r *UserRepository) CreateAccountToken(ctx context.Context, token *models.AccountToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const pruneQuery = `DELETE FROM account_tokens WHERE user_id = $1 AND purpose = $2 AND expires_at < $3`
	if _, err := r.db.ExecContext(ctx, pruneQuery, token.UserID, token.Purpose, token.CreatedAt); err != nil {
		return fmt.Errorf("prune account tokens: %w", err)
	}
	const insertQuery = `INSERT INTO account_tokens (id, user_id, purpose, token_hash, expires_at, used, used_at, created_at)
VALUES (:id, :user_id, :purpose, :token_hash, :expires_at, :used, :used_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insertQuery, token); err != nil {
		return fmt.Errorf("create account token: %w", err)
	}
	return nil
}

// FindAccountToken looks a token up by purpose and hash.
func (r *UserRepository) FindAccountToken(ctx context.Context, purpose models.AccountTokenPurpose, hash string) (*models.AccountToken, error) {
	const query = `SELECT id, user_id, purpose, token_hash, expires_at, used, used_at, created_at FROM account_tokens WHERE purpose = $1 AND token_hash = $2 LIMIT 1`
	var token models.AccountToken
	if err := r.db.GetContext(ctx, &token, query, purpose, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account token: %w", err)
	}
	return &token, nil
}

// ConsumeAccountToken marks the token used. Returns sql.ErrNoRows when another request
// redeemed it first.
func (r *UserRepository) ConsumeAccountToken(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE account_tokens SET used = TRUE, used_at = $2 WHERE id = $1 AND used = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("consume account token: %w", err)
	}
	return expectAffected(result)
}

// DeleteAccount removes the user with their slots, appointments and queries in one
// transaction. Slots the user held on other lawyers' calendars are released first;
// the ids of those lawyers are returned.
func (r *UserRepository) DeleteAccount(ctx context.Context, id string, ts time.Time) (lawyers []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete account transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	statuses := make([]string, len(models.ActiveAppointmentStatuses))
	for i, s := range models.ActiveAppointmentStatuses {
		statuses[i] = string(s)
	}
	const releaseQuery = `UPDATE availability_slots s SET is_booked = FALSE, updated_at = $2
FROM appointments a
WHERE a.slot_id = s.id AND a.user_id = $1 AND s.lawyer_id <> $1 AND a.status = ANY($3)
RETURNING s.lawyer_id`
	var released []string
	if err = tx.SelectContext(ctx, &released, releaseQuery, id, ts, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("release held slots: %w", err)
	}

	cleanup := []struct {
		query string
		what  string
	}{
		{`DELETE FROM appointments WHERE user_id = $1 OR lawyer_id = $1`, "appointments"},
		{`DELETE FROM availability_slots WHERE lawyer_id = $1`, "availability slots"},
		{`DELETE FROM queries WHERE user_id = $1 OR lawyer_id = $1`, "queries"},
	}
	for _, step := range cleanup {
		if _, err = tx.ExecContext(ctx, step.query, id); err != nil {
			return nil, fmt.Errorf("delete %s: %w", step.what, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if err = expectAffected(result); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete account: %w", err)
	}

	seen := make(map[string]struct{}, len(released))
	for _, lawyerID := range released {
		if _, ok := seen[lawyerID]; ok {
			continue
		}
		seen[lawyerID] = struct{}{}
		lawyers = append(lawyers, lawyerID)
	}
	return lawyers, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
