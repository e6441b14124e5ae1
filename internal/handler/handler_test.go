package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
	"github.com/okil-ai/consult-api/pkg/storage"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type authServiceStub struct {
	loginReq  models.LoginRequest
	loginErr  error
	logoutErr error
	logoutFor *models.JWTClaims

	verifyToken string
	verifyErr   error
	forgotEmail string
	resetReq    models.ResetPasswordRequest
	profileReq  models.UpdateProfileRequest
	deletedFor  *models.JWTClaims
}

func (s *authServiceStub) RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "user-1", Email: req.Email, Role: models.RoleUser}, nil
}

func (s *authServiceStub) RegisterLawyer(ctx context.Context, req models.RegisterLawyerRequest) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "lawyer-1", Email: req.Email, Role: models.RoleLawyer}, nil
}

func (s *authServiceStub) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.loginReq = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *authServiceStub) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *authServiceStub) Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error {
	s.logoutFor = claims
	return s.logoutErr
}

func (s *authServiceStub) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.UserInfo{ID: claims.UserID, Role: claims.Role}, nil
}

func (s *authServiceStub) VerifyEmail(ctx context.Context, token string) error {
	s.verifyToken = token
	return s.verifyErr
}

func (s *authServiceStub) ResendVerification(ctx context.Context, req models.EmailRequest) error {
	return nil
}

func (s *authServiceStub) ForgotPassword(ctx context.Context, req models.EmailRequest) error {
	s.forgotEmail = req.Email
	return nil
}

func (s *authServiceStub) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	s.resetReq = req
	return nil
}

func (s *authServiceStub) UpdateProfile(ctx context.Context, claims *models.JWTClaims, req models.UpdateProfileRequest) (*models.UserInfo, error) {
	s.profileReq = req
	info := &models.UserInfo{ID: claims.UserID, Role: claims.Role}
	if req.FullName != nil {
		info.FullName = *req.FullName
	}
	return info, nil
}

func (s *authServiceStub) DeleteAccount(ctx context.Context, claims *models.JWTClaims) error {
	s.deletedFor = claims
	return nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceStub{}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.LoginRequest{Identifier: "budi", Password: "secret"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	c.Request.Header.Set("User-Agent", "test-agent")
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-agent", svc.loginReq.UserAgent)
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "access", res.AccessToken)

	svc.loginErr = appErrors.ErrInvalidCredentials
	c, w = newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte("{"))
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestAuthHandlerRegisterAndLogout(t *testing.T) {
	svc := &authServiceStub{}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(map[string]string{"username": "budi", "email": "budi@okil.test", "password": "secret", "full_name": "Budi"})
	c, w := newGinContext(http.MethodPost, "/auth/register/user", payload)
	h.RegisterUser(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
	c, w = newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"r"}`))
	c.Set(middleware.ContextUserKey, claims)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Same(t, claims, svc.logoutFor)

	c, w = newGinContext(http.MethodPost, "/auth/logout", []byte(`{}`))
	c.Set(middleware.ContextUserKey, claims)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerAccountLinks(t *testing.T) {
	svc := &authServiceStub{}
	h := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodGet, "/auth/verify?token=abc", nil)
	h.VerifyEmail(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.verifyToken)

	svc.verifyErr = appErrors.Clone(appErrors.ErrValidation, "invalid or expired token")
	c, w = newGinContext(http.MethodGet, "/auth/verify?token=old", nil)
	h.VerifyEmail(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/forgot", []byte(`{"email":"budi@okil.test"}`))
	h.ForgotPassword(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "budi@okil.test", svc.forgotEmail)
	var msg messageBody
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &msg))
	assert.Contains(t, msg.Message, "if the account exists")

	c, w = newGinContext(http.MethodPost, "/auth/reset", []byte(`{"token":"t","new_password":"secret2"}`))
	h.ResetPassword(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret2", svc.resetReq.NewPassword)
}

func TestAuthHandlerUpdateAndDeleteMe(t *testing.T) {
	svc := &authServiceStub{}
	h := NewAuthHandler(svc)
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	c, w := newGinContext(http.MethodPut, "/auth/me", []byte(`{"full_name":"Budi S","current_password":"old","new_password":"newer1"}`))
	c.Set(middleware.ContextUserKey, claims)
	h.UpdateMe(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.profileReq.CurrentPassword)
	assert.Equal(t, "old", *svc.profileReq.CurrentPassword)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &info))
	assert.Equal(t, "Budi S", info.FullName)

	c, w = newGinContext(http.MethodDelete, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, claims)
	h.DeleteMe(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Same(t, claims, svc.deletedFor)
}

type lawyerServiceStub struct {
	openQuery dto.AvailabilityQuery
	cacheHit  bool
	deleteErr error
}

func (s *lawyerServiceStub) ListLawyers(ctx context.Context, query dto.LawyerDirectoryQuery) ([]models.LawyerProfile, *models.Pagination, error) {
	return []models.LawyerProfile{{ID: "lawyer-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (s *lawyerServiceStub) GetLawyer(ctx context.Context, id string) (*models.LawyerProfile, error) {
	if id != "lawyer-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lawyer not found")
	}
	return &models.LawyerProfile{ID: id}, nil
}

func (s *lawyerServiceStub) Publish(ctx context.Context, claims *models.JWTClaims, req dto.PublishSlotRequest) (*models.AvailabilitySlot, error) {
	return &models.AvailabilitySlot{ID: "slot-1", LawyerID: claims.UserID}, nil
}

func (s *lawyerServiceStub) PublishWindow(ctx context.Context, claims *models.JWTClaims, req dto.PublishWindowRequest) ([]models.AvailabilitySlot, error) {
	return []models.AvailabilitySlot{{ID: "slot-1"}, {ID: "slot-2"}}, nil
}

func (s *lawyerServiceStub) ListOpen(ctx context.Context, lawyerID string, query dto.AvailabilityQuery) ([]models.AvailabilitySlot, bool, error) {
	s.openQuery = query
	return []models.AvailabilitySlot{{ID: "slot-1", LawyerID: lawyerID}}, s.cacheHit, nil
}

func (s *lawyerServiceStub) ListHistory(ctx context.Context, claims *models.JWTClaims, query dto.AvailabilityHistoryQuery) ([]models.AvailabilitySlot, error) {
	return []models.AvailabilitySlot{}, nil
}

func (s *lawyerServiceStub) Delete(ctx context.Context, claims *models.JWTClaims, slotID string) error {
	return s.deleteErr
}

func TestLawyerHandlerDirectory(t *testing.T) {
	svc := &lawyerServiceStub{}
	h := NewLawyerHandler(svc, svc)

	c, w := newGinContext(http.MethodGet, "/lawyers?page=1", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	c, w = newGinContext(http.MethodGet, "/lawyers/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLawyerHandlerOpenSlotsReportsCacheHit(t *testing.T) {
	svc := &lawyerServiceStub{cacheHit: true}
	h := NewLawyerHandler(svc, svc)

	c, w := newGinContext(http.MethodGet, "/lawyers/lawyer-1/availability?date=2025-03-11", nil)
	c.Params = gin.Params{{Key: "id", Value: "lawyer-1"}}
	h.OpenSlots(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-11", svc.openQuery.Date)
	assert.Equal(t, true, decode(t, w).Meta["cache_hit"])
}

func TestLawyerHandlerDeleteSlotConflict(t *testing.T) {
	svc := &lawyerServiceStub{deleteErr: appErrors.Clone(appErrors.ErrConflict, "slot already booked")}
	h := NewLawyerHandler(svc, svc)

	c, w := newGinContext(http.MethodDelete, "/lawyers/availability/slot-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "slot-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "lawyer-1", Role: models.RoleLawyer})
	h.DeleteSlot(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

type appointmentServiceStub struct {
	lastCreate    dto.CreateAppointmentRequest
	createErr     error
	transitionErr error
	lastUpdate    dto.UpdateAppointmentRequest
}

func (s *appointmentServiceStub) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	s.lastCreate = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Appointment{ID: "appt-1", UserID: claims.UserID, LawyerID: req.LawyerID, Status: models.AppointmentPending}, nil
}

func (s *appointmentServiceStub) Transition(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error) {
	s.lastUpdate = req
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	return &models.Appointment{ID: id, Status: *req.Status}, nil
}

func (s *appointmentServiceStub) List(ctx context.Context, claims *models.JWTClaims, query dto.AppointmentListQuery) ([]models.Appointment, error) {
	return []models.Appointment{}, nil
}

func (s *appointmentServiceStub) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Appointment, error) {
	return &models.Appointment{ID: id}, nil
}

func TestAppointmentHandlerCreate(t *testing.T) {
	svc := &appointmentServiceStub{}
	h := NewAppointmentHandler(svc)
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	payload := []byte(`{"lawyer_id":"lawyer-1","slot_id":"slot-1"}`)
	c, w := newGinContext(http.MethodPost, "/appointments", payload)
	c.Set(middleware.ContextUserKey, claims)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	svc.createErr = appErrors.Clone(appErrors.ErrConflict, "slot already booked")
	c, w = newGinContext(http.MethodPost, "/appointments", payload)
	c.Set(middleware.ContextUserKey, claims)
	h.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrConflict.Code, decode(t, w).Error.Code)
}

func TestAppointmentHandlerCreateAcceptsMessage(t *testing.T) {
	svc := &appointmentServiceStub{}
	h := NewAppointmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/appointments", []byte(`{"lawyer_id":"lawyer-1","slot_id":"slot-1","message":" Boundary dispute with neighbour "}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Boundary dispute with neighbour", svc.lastCreate.Issue())

	both := dto.CreateAppointmentRequest{Description: "Tenancy", Message: "ignored"}
	assert.Equal(t, "Tenancy", both.Issue())
}

func TestAppointmentHandlerUpdate(t *testing.T) {
	svc := &appointmentServiceStub{}
	h := NewAppointmentHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/appointments/appt-1", []byte(`{"status":"approved"}`))
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "lawyer-1", Role: models.RoleLawyer})
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastUpdate.Status)
	assert.Equal(t, models.AppointmentApproved, *svc.lastUpdate.Status)

	svc.transitionErr = appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move from completed")
	c, w = newGinContext(http.MethodPatch, "/appointments/appt-1", []byte(`{"status":"approved"}`))
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	h.Update(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type queryServiceStub struct {
	updateErr error
}

func (s *queryServiceStub) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateQueryRequest) (*models.Query, error) {
	return &models.Query{ID: "query-1", UserID: claims.UserID, Subject: req.Subject}, nil
}

func (s *queryServiceStub) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateQueryRequest) (*models.Query, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Query{ID: id}, nil
}

func (s *queryServiceStub) List(ctx context.Context, claims *models.JWTClaims, query dto.QueryListQuery) ([]models.Query, error) {
	return []models.Query{}, nil
}

func (s *queryServiceStub) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Query, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not visible")
}

func TestQueryHandler(t *testing.T) {
	svc := &queryServiceStub{}
	h := NewQueryHandler(svc)
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	c, w := newGinContext(http.MethodPost, "/queries", []byte(`{"subject":"Lease","description":"Deposit kept"}`))
	c.Set(middleware.ContextUserKey, claims)
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodGet, "/queries/query-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "query-1"}}
	c.Set(middleware.ContextUserKey, claims)
	h.Get(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.updateErr = appErrors.Clone(appErrors.ErrConflict, "query was changed concurrently")
	c, w = newGinContext(http.MethodPatch, "/queries/query-1", []byte(`{"status":"accepted"}`))
	c.Params = gin.Params{{Key: "id", Value: "query-1"}}
	h.Update(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

type exportServiceStub struct {
	path string
	err  error
}

func (s *exportServiceStub) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateExportRequest) (*dto.ExportResponse, error) {
	return &dto.ExportResponse{ID: "export-1", Format: req.Format, URL: "/api/v1/exports/token"}, nil
}

func (s *exportServiceStub) Open(token string) (*os.File, *storage.DownloadClaims, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, nil, err
	}
	claims := &storage.DownloadClaims{Path: "lawyer-1/export-1.csv", OwnerID: "lawyer-1"}
	claims.ID = "export-1"
	return file, claims, nil
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export-1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Time\n"), 0o644))
	h := NewExportHandler(&exportServiceStub{path: path})

	c, w := newGinContext(http.MethodGet, "/exports/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "export-1.csv")
	assert.Equal(t, "Date,Time\n", w.Body.String())
	owner, _ := c.Get(middleware.AuditSubjectKey)
	assert.Equal(t, "lawyer-1", owner)

	h = NewExportHandler(&exportServiceStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")})
	c, w = newGinContext(http.MethodGet, "/exports/bad", nil)
	h.Download(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func TestRegisterRoutesGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lawyers := &lawyerServiceStub{}
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), RouterConfig{
		Auth:         NewAuthHandler(&authServiceStub{}),
		Lawyers:      NewLawyerHandler(lawyers, lawyers),
		Appointments: NewAppointmentHandler(&appointmentServiceStub{}),
		Queries:      NewQueryHandler(&queryServiceStub{}),
		Exports:      NewExportHandler(&exportServiceStub{err: errors.New("unused")}),
		Tokens: tokenStub{
			"user":   {UserID: "user-1", Role: models.RoleUser},
			"lawyer": {UserID: "lawyer-1", Role: models.RoleLawyer},
		},
	})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"public directory", http.MethodGet, "/api/v1/lawyers", "", "", http.StatusOK},
		{"public availability", http.MethodGet, "/api/v1/lawyers/lawyer-1/availability", "", "", http.StatusOK},
		{"lawyer profile", http.MethodGet, "/api/v1/lawyers/lawyer-1", "", "", http.StatusOK},
		{"publish needs auth", http.MethodPost, "/api/v1/lawyers/availability", "", `{}`, http.StatusUnauthorized},
		{"publish needs lawyer", http.MethodPost, "/api/v1/lawyers/availability", "user", `{}`, http.StatusForbidden},
		{"publish as lawyer", http.MethodPost, "/api/v1/lawyers/availability", "lawyer", `{}`, http.StatusCreated},
		{"history as lawyer", http.MethodGet, "/api/v1/lawyers/availability", "lawyer", "", http.StatusOK},
		{"book as lawyer", http.MethodPost, "/api/v1/appointments", "lawyer", `{"lawyer_id":"lawyer-1"}`, http.StatusForbidden},
		{"book as user", http.MethodPost, "/api/v1/appointments", "user", `{"lawyer_id":"lawyer-1"}`, http.StatusCreated},
		{"export as user", http.MethodPost, "/api/v1/appointments/exports", "user", `{}`, http.StatusForbidden},
		{"export as lawyer", http.MethodPost, "/api/v1/appointments/exports", "lawyer", `{"format":"csv"}`, http.StatusCreated},
		{"me", http.MethodGet, "/api/v1/auth/me", "user", "", http.StatusOK},
		{"update me needs auth", http.MethodPut, "/api/v1/auth/me", "", `{}`, http.StatusUnauthorized},
		{"delete me", http.MethodDelete, "/api/v1/auth/me", "user", "", http.StatusNoContent},
		{"verify is public", http.MethodGet, "/api/v1/auth/verify?token=t", "", "", http.StatusOK},
		{"forgot is public", http.MethodPost, "/api/v1/auth/forgot", "", `{"email":"a@b.test"}`, http.StatusOK},
		{"queries need auth", http.MethodGet, "/api/v1/queries", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body *bytes.Reader
			if tc.body != "" {
				body = bytes.NewReader([]byte(tc.body))
			} else {
				body = bytes.NewReader(nil)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestHealthHandlerReady(t *testing.T) {
	h := NewHealthHandler(nil, map[string]ReadinessCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h = NewHealthHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}), nil)
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, "# metrics", w.Body.String())
}
