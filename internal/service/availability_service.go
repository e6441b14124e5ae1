package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/internal/repository"
	"github.com/okil-ai/consult-api/pkg/cache"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type slotStore interface {
	CreateBatch(ctx context.Context, lawyerID string, slots []models.AvailabilitySlot) error
	FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error)
	Delete(ctx context.Context, id, lawyerID string) error
}

type lawyerFinder interface {
	FindLawyer(ctx context.Context, id string) (*models.LawyerProfile, error)
}

// AvailabilityConfig tunes slot splitting and the open-slot cache.
type AvailabilityConfig struct {
	SlotLength time.Duration
	CacheTTL   time.Duration
}

// AvailabilityService manages lawyer-published slots.
type AvailabilityService struct {
	slots     slotStore
	lawyers   lawyerFinder
	cache     *CacheService
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AvailabilityConfig
	now       func() time.Time
}

// NewAvailabilityService wires the service; cache, audit and metrics may be nil.
func NewAvailabilityService(slots slotStore, lawyers lawyerFinder, cacheSvc *CacheService, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AvailabilityConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SlotLength <= 0 {
		cfg.SlotLength = 30 * time.Minute
	}
	return &AvailabilityService{
		slots:     slots,
		lawyers:   lawyers,
		cache:     cacheSvc,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       utcNow,
	}
}

// Publish creates one slot for the calling lawyer. Windows are never merged.
func (s *AvailabilityService) Publish(ctx context.Context, claims *models.JWTClaims, req dto.PublishSlotRequest) (*models.AvailabilitySlot, error) {
	start, end, err := s.resolveWindow(claims, req)
	if err != nil {
		return nil, err
	}
	created, err := s.create(ctx, claims, []models.Window{{Start: start, End: end}})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// PublishWindow splits the window into fixed segments and creates them atomically.
func (s *AvailabilityService) PublishWindow(ctx context.Context, claims *models.JWTClaims, req dto.PublishWindowRequest) ([]models.AvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid availability window")
	}
	start, end, err := s.resolveWindow(claims, req.PublishSlotRequest)
	if err != nil {
		return nil, err
	}
	segment := s.cfg.SlotLength
	if req.SegmentMinutes > 0 {
		segment = time.Duration(req.SegmentMinutes) * time.Minute
	}
	windows := models.SplitWindow(start, end, segment)
	if len(windows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window is shorter than one %s segment", segment))
	}
	return s.create(ctx, claims, windows)
}

func (s *AvailabilityService) resolveWindow(claims *models.JWTClaims, req dto.PublishSlotRequest) (time.Time, time.Time, error) {
	if err := requireSession(claims); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !claims.IsLawyer() {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrForbidden, "only lawyers can publish availability")
	}
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, time.Time{}, invalid(err, "invalid availability payload")
	}
	start, end, ok, err := req.Resolve()
	if err != nil {
		return time.Time{}, time.Time{}, invalid(err, "invalid availability date or time")
	}
	if !ok {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_at and end_at, or day with start_time and end_time, are required")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	if start.Before(s.now()) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "availability cannot start in the past")
	}
	return start, end, nil
}

func (s *AvailabilityService) create(ctx context.Context, claims *models.JWTClaims, windows []models.Window) ([]models.AvailabilitySlot, error) {
	now := s.now()
	slots := make([]models.AvailabilitySlot, len(windows))
	for i, w := range windows {
		slots[i] = models.AvailabilitySlot{LawyerID: claims.UserID, StartAt: w.Start, EndAt: w.End, CreatedAt: now}
	}

	if err := s.slots.CreateBatch(ctx, claims.UserID, slots); err != nil {
		if errors.Is(err, repository.ErrSlotOverlap) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "availability overlaps an existing slot")
		}
		return nil, appErrors.Internal(err, "failed to publish availability")
	}

	s.InvalidateLawyer(ctx, claims.UserID)
	s.metrics.RecordSlotsPublished(len(slots))
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionSlotPublish,
		Resource:   "availability",
		ResourceID: &slots[0].ID,
		NewValues:  []byte(fmt.Sprintf(`{"slots":%d}`, len(slots))),
	})
	return slots, nil
}

// ListOpen returns the lawyer's unbooked slots that have not started, optionally for one
// UTC day. The bool reports whether the result was served from cache.
func (s *AvailabilityService) ListOpen(ctx context.Context, lawyerID string, query dto.AvailabilityQuery) ([]models.AvailabilitySlot, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, invalid(err, "invalid availability query")
	}
	if _, err := s.lawyers.FindLawyer(ctx, lawyerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "lawyer not found")
		}
		return nil, false, appErrors.Internal(err, "failed to load lawyer")
	}

	now := s.now()
	from := now
	var to *time.Time
	dayKey := "all"
	if query.Date != "" {
		day, err := time.ParseInLocation(models.DateLayout, query.Date, time.UTC)
		if err != nil {
			return nil, false, invalid(err, "invalid date")
		}
		dayStart, dayEnd := models.DayBounds(day)
		if !dayEnd.After(now) {
			return []models.AvailabilitySlot{}, false, nil
		}
		if dayStart.After(from) {
			from = dayStart
		}
		to = &dayEnd
		dayKey = query.Date
	}

	key := cache.Key("availability", lawyerID, dayKey)
	var cached []models.AvailabilitySlot
	if s.cache.Get(ctx, key, &cached) {
		return upcoming(cached, now), true, nil
	}

	slots, err := s.slots.List(ctx, models.AvailabilityFilter{LawyerID: lawyerID, From: &from, To: to, OpenOnly: true})
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list availability")
	}
	s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return slots, false, nil
}

func upcoming(slots []models.AvailabilitySlot, now time.Time) []models.AvailabilitySlot {
	out := make([]models.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if !slot.Booked && !slot.StartAt.Before(now) {
			out = append(out, slot)
		}
	}
	return out
}

// ListHistory returns every slot of the calling lawyer, booked and past included.
func (s *AvailabilityService) ListHistory(ctx context.Context, claims *models.JWTClaims, query dto.AvailabilityHistoryQuery) ([]models.AvailabilitySlot, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if !claims.IsLawyer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lawyers have availability")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, invalid(err, "invalid history query")
	}

	filter := models.AvailabilityFilter{LawyerID: claims.UserID}
	if query.From != "" {
		from, _ := time.ParseInLocation(models.DateLayout, query.From, time.UTC)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := time.ParseInLocation(models.DateLayout, query.To, time.UTC)
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list availability")
	}
	return slots, nil
}

// Delete removes an unbooked slot owned by the calling lawyer.
func (s *AvailabilityService) Delete(ctx context.Context, claims *models.JWTClaims, slotID string) error {
	if err := requireSession(claims); err != nil {
		return err
	}
	if !claims.IsLawyer() {
		return appErrors.Clone(appErrors.ErrForbidden, "only lawyers can delete availability")
	}

	err := s.slots.Delete(ctx, slotID, claims.UserID)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	case errors.Is(err, repository.ErrSlotNotOwned):
		return appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another lawyer")
	case errors.Is(err, repository.ErrSlotTaken):
		return appErrors.Clone(appErrors.ErrConflict, "slot is booked")
	default:
		return appErrors.Internal(err, "failed to delete slot")
	}

	s.InvalidateLawyer(ctx, claims.UserID)
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionSlotDelete,
		Resource:   "availability",
		ResourceID: &slotID,
	})
	return nil
}

// InvalidateLawyer drops every cached open-slot listing of the lawyer.
func (s *AvailabilityService) InvalidateLawyer(ctx context.Context, lawyerID string) {
	s.cache.Invalidate(ctx, cache.Key("availability", lawyerID, "*"))
}
