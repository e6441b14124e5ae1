package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type authUserRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, email, username string, barCouncilNumber *string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, hash string, ts time.Time) error
	MarkVerified(ctx context.Context, id string, ts time.Time) error
	CreateAccountToken(ctx context.Context, token *models.AccountToken) error
	FindAccountToken(ctx context.Context, purpose models.AccountTokenPurpose, hash string) (*models.AccountToken, error)
	ConsumeAccountToken(ctx context.Context, id string, usedAt time.Time) error
	DeleteAccount(ctx context.Context, id string, ts time.Time) ([]string, error)
}

const invalidAccountToken = "invalid or expired token"

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool

	// RequireVerification blocks login until the emailed verification link is opened.
	RequireVerification bool
	VerificationTTL     time.Duration
	PasswordResetTTL    time.Duration
	FrontendURL         string
}

// AuthService provides registration, login and token use cases.
type AuthService struct {
	repo         authUserRepository
	audit        auditLogger
	events       EventPublisher
	availability availabilityInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	config       AuthConfig
	now          func() time.Time
}

// AuthServiceOption configures optional collaborators.
type AuthServiceOption func(*AuthService)

// WithAuthEvents mails verification and password reset links.
func WithAuthEvents(publisher EventPublisher) AuthServiceOption {
	return func(s *AuthService) {
		if !isNil(publisher) {
			s.events = publisher
		}
	}
}

// WithAuthAvailability invalidates cached open slots touched by account deletion.
func WithAuthAvailability(invalidator availabilityInvalidator) AuthServiceOption {
	return func(s *AuthService) {
		if !isNil(invalidator) {
			s.availability = invalidator
		}
	}
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger, config AuthConfig, opts ...AuthServiceOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.VerificationTTL <= 0 {
		config.VerificationTTL = time.Hour
	}
	if config.PasswordResetTTL <= 0 {
		config.PasswordResetTTL = time.Hour
	}
	svc := &AuthService{repo: repo, audit: audit, validator: validate, logger: logger, config: config, now: utcNow}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// RegisterUser creates a client account.
func (s *AuthService) RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid registration payload")
	}
	return s.register(ctx, req, models.RoleUser, nil, nil)
}

// RegisterLawyer creates a lawyer account. The bar council number must be unique.
func (s *AuthService) RegisterLawyer(ctx context.Context, req models.RegisterLawyerRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid lawyer registration payload")
	}
	bar := strings.TrimSpace(req.BarCouncilNumber)
	if bar == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bar council number is required")
	}
	return s.register(ctx, req.RegisterUserRequest, models.RoleLawyer, &bar, trimmedOrNil(req.Specialization))
}

func (s *AuthService) register(ctx context.Context, req models.RegisterUserRequest, role models.UserRole, bar, specialization *string) (*models.UserInfo, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	exists, err := s.repo.Exists(ctx, email, username, bar)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing accounts")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an account with these details already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Username:         username,
		Email:            email,
		PasswordHash:     string(hash),
		FullName:         strings.TrimSpace(req.FullName),
		Phone:            trimmedOrNil(req.Phone),
		Role:             role,
		BarCouncilNumber: bar,
		Specialization:   specialization,
		Active:           true,
		Verified:         !s.config.RequireVerification,
		CreatedAt:        s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create account")
	}

	if !user.Verified {
		if err := s.sendAccountLink(ctx, user, models.TokenPurposeVerifyEmail); err != nil {
			s.logger.Warn("failed to issue verification link", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, role)),
	})

	info := models.NewUserInfo(user)
	return &info, nil
}

// Login authenticates a user by email or username and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid login payload")
	}

	user, err := s.repo.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if s.config.RequireVerification && !user.Verified {
		return nil, appErrors.Clone(appErrors.ErrEmailNotVerified, "email not verified, please check your inbox")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID, s.now()); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	resp, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})

	return resp, nil
}

// RefreshToken rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid refresh payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch refresh token")
	}
	if !stored.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token already used")
		}
		return nil, appErrors.Internal(err, "failed to revoke refresh token")
	}

	return s.issue(ctx, user, req.IP, req.UserAgent)
}

// Logout revokes the refresh token presented by the session owner.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error {
	if err := requireSession(claims); err != nil {
		return err
	}
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return appErrors.Internal(err, "failed to load refresh token")
	}
	if stored.UserID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to revoke refresh token")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &claims.UserID,
		NewValues:  []byte(`{"status":"logout"}`),
	})
	return nil
}

// Me returns the account behind the session.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	info := models.NewUserInfo(user)
	return &info, nil
}

// VerifyEmail redeems an emailed verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	stored, err := s.redeem(ctx, models.TokenPurposeVerifyEmail, token)
	if err != nil {
		return err
	}
	if err := s.repo.MarkVerified(ctx, stored.UserID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to verify email")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &stored.UserID,
		Action:     models.AuditActionVerifyEmail,
		Resource:   "auth",
		ResourceID: &stored.UserID,
	})
	return nil
}

// ResendVerification mails a fresh verification link. Unknown or already verified
// addresses succeed silently.
func (s *AuthService) ResendVerification(ctx context.Context, req models.EmailRequest) error {
	user, err := s.accountByEmail(ctx, req)
	if err != nil || user == nil || user.Verified {
		return err
	}
	if err := s.sendAccountLink(ctx, user, models.TokenPurposeVerifyEmail); err != nil {
		return appErrors.Internal(err, "failed to issue verification link")
	}
	return nil
}

// ForgotPassword mails a single-use reset link. The reply never reveals whether the
// address belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.EmailRequest) error {
	user, err := s.accountByEmail(ctx, req)
	if err != nil || user == nil {
		return err
	}
	if err := s.sendAccountLink(ctx, user, models.TokenPurposePasswordReset); err != nil {
		return appErrors.Internal(err, "failed to issue reset link")
	}
	return nil
}

// ResetPassword sets a new password from a reset token and signs out every session.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid reset payload")
	}
	stored, err := s.redeem(ctx, models.TokenPurposePasswordReset, req.Token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, stored.UserID, req.NewPassword); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &stored.UserID,
		Action:     models.AuditActionPasswordReset,
		Resource:   "auth",
		ResourceID: &stored.UserID,
	})
	return nil
}

// UpdateProfile edits the caller's name, phone, specialization (lawyers only) and,
// when the current password is confirmed, the password.
func (s *AuthService) UpdateProfile(ctx context.Context, claims *models.JWTClaims, req models.UpdateProfileRequest) (*models.UserInfo, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid profile payload")
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	var changed []string
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full name cannot be empty")
		}
		user.FullName = name
		changed = append(changed, "full_name")
	}
	if req.Phone != nil {
		user.Phone = trimmedOrNil(req.Phone)
		changed = append(changed, "phone")
	}
	if req.Specialization != nil {
		if !user.IsLawyer() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only lawyers have a specialization")
		}
		user.Specialization = trimmedOrNil(req.Specialization)
		changed = append(changed, "specialization")
	}

	changePassword := req.ChangesPassword()
	if changePassword {
		if deref(req.CurrentPassword) == "" || deref(req.NewPassword) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "both current_password and new_password are required to change password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.CurrentPassword)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "current password is incorrect")
		}
	}

	user.UpdatedAt = s.now()
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update profile")
	}
	if changePassword {
		if err := s.setPassword(ctx, user.ID, *req.NewPassword); err != nil {
			return nil, err
		}
		changed = append(changed, "password")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionProfileUpdate,
		Resource:   "user",
		ResourceID: &user.ID,
		NewValues:  []byte(fmt.Sprintf(`{"fields":%q}`, strings.Join(changed, ","))),
	})

	info := models.NewUserInfo(user)
	return &info, nil
}

// DeleteAccount removes the caller with their slots, appointments and queries.
func (s *AuthService) DeleteAccount(ctx context.Context, claims *models.JWTClaims) error {
	if err := requireSession(claims); err != nil {
		return err
	}
	released, err := s.repo.DeleteAccount(ctx, claims.UserID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete account")
	}

	if s.availability != nil {
		if claims.IsLawyer() {
			released = append(released, claims.UserID)
		}
		for _, lawyerID := range released {
			s.availability.InvalidateLawyer(ctx, lawyerID)
		}
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionAccountDelete,
		Resource:   "user",
		ResourceID: &claims.UserID,
	})
	return nil
}

func (s *AuthService) accountByEmail(ctx context.Context, req models.EmailRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "a valid email is required")
	}
	user, err := s.repo.FindByIdentifier(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if !user.Active || !strings.EqualFold(user.Email, strings.TrimSpace(req.Email)) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) sendAccountLink(ctx context.Context, user *models.User, purpose models.AccountTokenPurpose) error {
	raw, err := generateRefreshTokenString()
	if err != nil {
		return err
	}
	now := s.now()
	ttl, path, eventType := s.config.VerificationTTL, "/verify-email", models.EventAccountVerification
	if purpose == models.TokenPurposePasswordReset {
		ttl, path, eventType = s.config.PasswordResetTTL, "/reset-password", models.EventPasswordReset
	}
	if err := s.repo.CreateAccountToken(ctx, &models.AccountToken{
		UserID:    user.ID,
		Purpose:   purpose,
		TokenHash: hashAccountToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if s.events == nil {
		s.logger.Warn("account link not mailed, no notifier configured", zap.String("user_id", user.ID), zap.String("purpose", string(purpose)))
		return nil
	}
	s.events.Publish(ctx, models.Event{
		Type:        eventType,
		EntityID:    user.ID,
		RecipientID: user.ID,
		Link:        s.config.FrontendURL + path + "?token=" + url.QueryEscape(raw),
		OccurredAt:  now,
	})
	return nil
}

func (s *AuthService) redeem(ctx context.Context, purpose models.AccountTokenPurpose, raw string) (*models.AccountToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	stored, err := s.repo.FindAccountToken(ctx, purpose, hashAccountToken(raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, invalidAccountToken)
		}
		return nil, appErrors.Internal(err, "failed to load token")
	}
	now := s.now()
	if stored.Expired(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, invalidAccountToken)
	}
	if stored.Used {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token already used")
	}
	if err := s.repo.ConsumeAccountToken(ctx, stored.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "token already used")
		}
		return nil, appErrors.Internal(err, "failed to redeem token")
	}
	return stored, nil
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	now := s.now()
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID, now); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func hashAccountToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, ip, userAgent string) (*models.LoginResponse, error) {
	issuedAt := s.now()
	accessToken, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	value, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}
	refresh := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: issuedAt.Add(s.config.RefreshTokenExpiry),
		CreatedAt: issuedAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Internal(err, "failed to persist refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     issuedAt,
		User:         models.NewUserInfo(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
