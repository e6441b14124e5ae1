package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
	"github.com/okil-ai/consult-api/pkg/export"
	"github.com/okil-ai/consult-api/pkg/storage"
)

const maxExportDays = 366

type appointmentLister interface {
	ListForLawyer(ctx context.Context, lawyerID string, from, to time.Time) ([]models.Appointment, error)
}

type fileStorage interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	CleanupOlderThan(cutoff time.Time) ([]string, error)
}

type downloadSigner interface {
	Sign(id, path, ownerID string) (string, time.Time, error)
	Parse(token string) (*storage.DownloadClaims, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportService renders a lawyer's schedule to CSV or PDF and hands out signed download links.
type ExportService struct {
	appointments appointmentLister
	storage      fileStorage
	signer       downloadSigner
	audit        auditLogger
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ExportConfig
	now          func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(appointments appointmentLister, store fileStorage, signer downloadSigner, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		appointments: appointments,
		storage:      store,
		signer:       signer,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          utcNow,
	}
}

// Create renders the lawyer's appointments between From and To (both days inclusive).
func (s *ExportService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateExportRequest) (*dto.ExportResponse, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if !claims.IsLawyer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lawyers can export schedules")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid export request")
	}
	from, err := time.ParseInLocation(models.DateLayout, req.From, time.UTC)
	if err != nil {
		return nil, invalid(err, "invalid from date")
	}
	to, err := time.ParseInLocation(models.DateLayout, req.To, time.UTC)
	if err != nil {
		return nil, invalid(err, "invalid to date")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from) >= maxExportDays*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export range is limited to %d days", maxExportDays))
	}
	renderer, err := export.RendererFor(export.Format(req.Format))
	if err != nil {
		return nil, invalid(err, "unsupported export format")
	}

	appts, err := s.appointments.ListForLawyer(ctx, claims.UserID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].ScheduledAt.Before(appts[j].ScheduledAt) })
	table := scheduleTable(claims, appts, req.From, req.To)
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s/%s.%s", claims.UserID, id, renderer.Extension())
	if err := s.storage.Save(name, payload); err != nil {
		return nil, appErrors.Internal(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(id, name, claims.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	resp := &dto.ExportResponse{
		ID:        id,
		Format:    req.Format,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Rows:      len(table.Rows),
		ExpiresAt: expiresAt,
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionExport,
		Resource:   "export",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"format":%q,"from":%q,"to":%q,"rows":%d}`, req.Format, req.From, req.To, len(table.Rows))),
	})
	return resp, nil
}

// Open resolves a download token to the stored file. The caller closes the file.
func (s *ExportService) Open(token string) (*os.File, *storage.DownloadClaims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		if errors.Is(err, storage.ErrInvalidPath) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
		}
		return nil, nil, appErrors.Internal(err, "failed to open export")
	}
	return file, claims, nil
}

// StartCleanup purges rendered exports older than ResultTTL until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup removes exports older than ResultTTL and returns how many were deleted.
func (s *ExportService) Cleanup() int {
	removed, err := s.storage.CleanupOlderThan(s.now().Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
	}
	if len(removed) > 0 {
		s.logger.Info("purged expired exports", zap.Int("count", len(removed)))
	}
	return len(removed)
}

func scheduleTable(claims *models.JWTClaims, appts []models.Appointment, from, to string) export.Table {
	rows := make([]map[string]string, 0, len(appts))
	for _, appt := range appts {
		at := appt.ScheduledAt.UTC()
		kind := "free-form"
		if appt.SlotID != nil {
			kind = "slot"
		}
		rows = append(rows, map[string]string{
			"date":        at.Format(models.DateLayout),
			"time":        at.Format(models.TimeLayout),
			"client":      appt.UserName,
			"status":      string(appt.Status),
			"kind":        kind,
			"description": appt.Description,
		})
	}
	title := "Consultation schedule"
	if claims.FullName != "" {
		title = fmt.Sprintf("Consultation schedule: %s", claims.FullName)
	}
	return export.Table{
		Title:    title,
		Subtitle: fmt.Sprintf("%s to %s (UTC)", from, to),
		Columns: []export.Column{
			{Key: "date", Title: "Date", Width: 1.2},
			{Key: "time", Title: "Time", Width: 0.8},
			{Key: "client", Title: "Client", Width: 1.6},
			{Key: "status", Title: "Status", Width: 1},
			{Key: "kind", Title: "Booking", Width: 1},
			{Key: "description", Title: "Description", Width: 3},
		},
		Rows: rows,
	}
}
