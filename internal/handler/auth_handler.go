package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/pkg/response"
)

type authService interface {
	RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.UserInfo, error)
	RegisterLawyer(ctx context.Context, req models.RegisterLawyerRequest) (*models.UserInfo, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error
	Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, req models.EmailRequest) error
	ForgotPassword(ctx context.Context, req models.EmailRequest) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
	UpdateProfile(ctx context.Context, claims *models.JWTClaims, req models.UpdateProfileRequest) (*models.UserInfo, error)
	DeleteAccount(ctx context.Context, claims *models.JWTClaims) error
}

type messageBody struct {
	Message string `json:"message"`
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// RegisterUser godoc
// @Summary Register a client account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterUserRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register/user [post]
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req models.RegisterUserRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	user, err := h.service.RegisterUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// RegisterLawyer godoc
// @Summary Register a lawyer account
// @Description Bar council number is mandatory.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterLawyerRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register/lawyer [post]
func (h *AuthHandler) RegisterLawyer(c *gin.Context) {
	var req models.RegisterLawyerRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	user, err := h.service.RegisterLawyer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email or username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair; the old refresh token is revoked
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var payload struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &payload, "refresh token required") {
		return
	}

	if err := h.service.Logout(c.Request.Context(), claimsFromContext(c), payload.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// UpdateMe godoc
// @Summary Update current account
// @Description Name, phone and (lawyers only) specialization. Changing the password requires current_password and signs out other sessions.
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [put]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// DeleteMe godoc
// @Summary Delete current account
// @Description Removes the account with its appointments, slots and queries. Slots held on other lawyers' calendars are released.
// @Tags Authentication
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/me [delete]
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifyEmail godoc
// @Summary Verify email address
// @Tags Authentication
// @Produce json
// @Param token query string true "Verification token from the email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/verify [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.service.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, messageBody{Message: "email verified, you can now sign in"})
}

// ResendVerification godoc
// @Summary Resend verification email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.EmailRequest true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/verify/resend [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req, "invalid email payload") {
		return
	}
	if err := h.service.ResendVerification(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, messageBody{Message: "if the account exists and is unverified, a new link has been sent"})
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Description The reply is the same whether or not the email is registered.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.EmailRequest true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.EmailRequest
	if !bindJSON(c, &req, "invalid email payload") {
		return
	}
	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, messageBody{Message: "if the account exists, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary Reset password with an emailed token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req, "invalid reset payload") {
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, messageBody{Message: "password updated, please sign in again"})
}
