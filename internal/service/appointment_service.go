package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/internal/repository"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type appointmentStore interface {
	CreateBooking(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
}

type slotReader interface {
	FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)
}

type availabilityInvalidator interface {
	InvalidateLawyer(ctx context.Context, lawyerID string)
}

// AppointmentService runs the booking workflow and the appointment status machine.
type AppointmentService struct {
	appointments appointmentStore
	slots        slotReader
	lawyers      lawyerFinder
	availability availabilityInvalidator
	events       EventPublisher
	audit        auditLogger
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// AppointmentServiceOption configures optional collaborators.
type AppointmentServiceOption func(*AppointmentService)

// WithAppointmentEvents publishes lifecycle events after commit.
func WithAppointmentEvents(publisher EventPublisher) AppointmentServiceOption {
	return func(s *AppointmentService) {
		if !isNil(publisher) {
			s.events = publisher
		}
	}
}

// WithAppointmentAvailability invalidates cached open slots after slot changes.
func WithAppointmentAvailability(invalidator availabilityInvalidator) AppointmentServiceOption {
	return func(s *AppointmentService) {
		if !isNil(invalidator) {
			s.availability = invalidator
		}
	}
}

// WithAppointmentMetrics records booking and transition counters.
func WithAppointmentMetrics(metrics *MetricsService) AppointmentServiceOption {
	return func(s *AppointmentService) {
		s.metrics = metrics
	}
}

// NewAppointmentService constructs the service.
func NewAppointmentService(appointments appointmentStore, slots slotReader, lawyers lawyerFinder, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...AppointmentServiceOption) *AppointmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &AppointmentService{
		appointments: appointments,
		slots:        slots,
		lawyers:      lawyers,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		now:          utcNow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create books an appointment in pending, either on a published slot or at a free-form time.
func (s *AppointmentService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if claims.Role != models.RoleUser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients can book appointments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid appointment payload")
	}
	if _, err := s.lawyers.FindLawyer(ctx, req.LawyerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lawyer not found")
		}
		return nil, appErrors.Internal(err, "failed to load lawyer")
	}

	now := s.now()
	appt := &models.Appointment{
		UserID:      claims.UserID,
		LawyerID:    req.LawyerID,
		Description: req.Issue(),
		Status:      models.AppointmentPending,
		CreatedAt:   now,
	}

	freeForm := req.Date != "" || req.Time != ""
	switch {
	case req.SlotID != nil && freeForm:
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either slot_id or date and time, not both")
	case req.SlotID != nil:
		slot, err := s.checkSlot(ctx, *req.SlotID, req.LawyerID, now)
		if err != nil {
			return nil, err
		}
		appt.SlotID = &slot.ID
		appt.ScheduledAt = slot.StartAt
	default:
		at, err := s.freeFormTime(req.Date, req.Time, now)
		if err != nil {
			return nil, err
		}
		appt.ScheduledAt = at
	}

	if err := s.appointments.CreateBooking(ctx, appt); err != nil {
		return nil, s.bookingError(err, "failed to book appointment")
	}
	s.metrics.RecordBooking("created")

	if appt.SlotID != nil {
		s.invalidate(ctx, appt.LawyerID)
	}
	s.publish(ctx, models.Event{
		Type:        models.EventAppointmentBooked,
		EntityID:    appt.ID,
		ActorID:     claims.UserID,
		RecipientID: appt.LawyerID,
		Status:      string(appt.Status),
		ScheduledAt: &appt.ScheduledAt,
		OccurredAt:  now,
	})
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionAppointmentCreate,
		Resource:   "appointment",
		ResourceID: &appt.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"scheduled_at":%q}`, appt.Status, appt.ScheduledAt.Format(time.RFC3339))),
	})

	return s.reload(ctx, appt), nil
}

// Transition changes status or reschedules. Status writes are compare-and-set on the
// status read here; losing a concurrent race yields a conflict.
func (s *AppointmentService) Transition(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid appointment update")
	}

	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Internal(err, "failed to load appointment")
	}
	if !appt.IsParticipant(claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this appointment")
	}

	target, err := targetStatus(req)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("appointment is already %s", appt.Status))
	}
	if target == models.AppointmentCancelled {
		if claims.UserID != appt.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the client can cancel an appointment")
		}
	} else if claims.UserID != appt.LawyerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("only the lawyer can move an appointment to %s", target))
	}
	if !appt.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, target))
	}

	now := s.now()
	if target == models.AppointmentCancelled && !appt.ScheduledAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "appointment has already started")
	}

	params := repository.TransitionParams{
		ID:          appt.ID,
		LawyerID:    appt.LawyerID,
		From:        appt.Status,
		To:          target,
		SlotID:      appt.SlotID,
		ScheduledAt: appt.ScheduledAt,
		Description: appt.Description,
		UpdatedAt:   now,
	}

	// Completion consumes the slot, so it stays booked.
	slotChanged := false
	switch target {
	case models.AppointmentRejected, models.AppointmentCancelled:
		if appt.SlotID != nil && appt.Status.HoldsSlot() {
			params.ReleaseSlotID = appt.SlotID
			slotChanged = true
		}
	case models.AppointmentRescheduled:
		if req.SlotID != nil {
			slot, err := s.checkSlot(ctx, *req.SlotID, appt.LawyerID, now)
			if err != nil {
				return nil, err
			}
			params.SlotID = &slot.ID
			params.BindSlotID = &slot.ID
			params.ScheduledAt = slot.StartAt
			slotChanged = true
		} else {
			at, err := s.freeFormTime(deref(req.Date), deref(req.Time), now)
			if err != nil {
				return nil, err
			}
			params.SlotID = nil
			params.ScheduledAt = at
			params.CheckTimeConflict = true
		}
		if appt.SlotID != nil {
			params.ReleaseSlotID = appt.SlotID
			slotChanged = true
		}
		params.Description = appt.Description + models.RescheduleNote(appt.ScheduledAt)
	}

	if err := s.appointments.ApplyTransition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment was changed concurrently; refresh and retry")
		}
		return nil, s.bookingError(err, "failed to update appointment")
	}
	s.metrics.RecordTransition("appointment", string(target))

	if slotChanged {
		s.invalidate(ctx, appt.LawyerID)
	}

	recipient := appt.UserID
	if claims.UserID == appt.UserID {
		recipient = appt.LawyerID
	}
	eventType := models.EventAppointmentStatus
	if target == models.AppointmentRescheduled {
		eventType = models.EventAppointmentRescheduled
	}
	s.publish(ctx, models.Event{
		Type:        eventType,
		EntityID:    appt.ID,
		ActorID:     claims.UserID,
		RecipientID: recipient,
		Status:      string(target),
		ScheduledAt: &params.ScheduledAt,
		OccurredAt:  now,
	})
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionAppointmentUpdate,
		Resource:   "appointment",
		ResourceID: &appt.ID,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, appt.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, target)),
	})

	updated := *appt
	updated.Status = target
	updated.SlotID = params.SlotID
	updated.ScheduledAt = params.ScheduledAt
	updated.Description = params.Description
	updated.UpdatedAt = now
	return s.reload(ctx, &updated), nil
}

// targetStatus resolves the requested status. Schedule fields imply rescheduled.
func targetStatus(req dto.UpdateAppointmentRequest) (models.AppointmentStatus, error) {
	if req.IsReschedule() {
		if req.Status != nil && *req.Status != models.AppointmentRescheduled {
			return "", appErrors.Clone(appErrors.ErrValidation, "schedule fields can only be sent with status rescheduled")
		}
		if req.SlotID != nil && (req.Date != nil || req.Time != nil) {
			return "", appErrors.Clone(appErrors.ErrValidation, "provide either slot_id or date and time, not both")
		}
		return models.AppointmentRescheduled, nil
	}
	if req.Status == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "status or a new schedule is required")
	}
	status := *req.Status
	if !status.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	if status == models.AppointmentRescheduled {
		return "", appErrors.Clone(appErrors.ErrValidation, "rescheduling requires slot_id or date and time")
	}
	if status == models.AppointmentPending {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition, "appointments cannot return to pending")
	}
	return status, nil
}

// List returns the caller's bookings: a client's own, or those addressed to a lawyer.
func (s *AppointmentService) List(ctx context.Context, claims *models.JWTClaims, query dto.AppointmentListQuery) ([]models.Appointment, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	filter := models.AppointmentFilter{}
	if claims.IsLawyer() {
		filter.LawyerID = claims.UserID
	} else {
		filter.UserID = claims.UserID
	}
	if query.Status != "" {
		status := models.AppointmentStatus(strings.ToLower(strings.TrimSpace(query.Status)))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
		}
		filter.Status = &status
	}
	if query.UpdatedSince != "" {
		since, err := time.Parse(time.RFC3339, query.UpdatedSince)
		if err != nil {
			return nil, invalid(err, "updated_since must be RFC3339")
		}
		since = since.UTC()
		filter.UpdatedSince = &since
	}

	appts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list appointments")
	}
	return appts, nil
}

// ListForLawyer returns the lawyer's appointments scheduled in [from, to).
func (s *AppointmentService) ListForLawyer(ctx context.Context, lawyerID string, from, to time.Time) ([]models.Appointment, error) {
	appts, err := s.appointments.List(ctx, models.AppointmentFilter{LawyerID: lawyerID, From: &from, To: &to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list appointments")
	}
	return appts, nil
}

// Get returns an appointment visible to its participants.
func (s *AppointmentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Appointment, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Internal(err, "failed to load appointment")
	}
	if !appt.IsParticipant(claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this appointment")
	}
	return appt, nil
}

func (s *AppointmentService) checkSlot(ctx context.Context, slotID, lawyerID string, now time.Time) (*models.AvailabilitySlot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, appErrors.Internal(err, "failed to load availability slot")
	}
	if slot.LawyerID != lawyerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
	}
	if slot.Booked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot already booked")
	}
	if slot.StartAt.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot has already started")
	}
	return slot, nil
}

func (s *AppointmentService) freeFormTime(date, clock string, now time.Time) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "slot_id or both date and time are required")
	}
	at, err := models.CombineDateTime(date, clock)
	if err != nil {
		return time.Time{}, invalid(err, "invalid date or time")
	}
	if !at.After(now) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "appointment time must be in the future")
	}
	return at, nil
}

func (s *AppointmentService) bookingError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		s.metrics.RecordBooking("conflict")
		return appErrors.Clone(appErrors.ErrConflict, "slot already booked")
	case errors.Is(err, repository.ErrTimeTaken):
		s.metrics.RecordBooking("conflict")
		return appErrors.Clone(appErrors.ErrConflict, "lawyer already has an appointment at that time")
	case errors.Is(err, repository.ErrSlotNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
	default:
		return appErrors.Internal(err, message)
	}
}

func (s *AppointmentService) reload(ctx context.Context, fallback *models.Appointment) *models.Appointment {
	appt, err := s.appointments.FindByID(ctx, fallback.ID)
	if err != nil {
		s.logger.Warn("failed to reload appointment", zap.String("appointment_id", fallback.ID), zap.Error(err))
		return fallback
	}
	return appt
}

func (s *AppointmentService) invalidate(ctx context.Context, lawyerID string) {
	if s.availability != nil {
		s.availability.InvalidateLawyer(ctx, lawyerID)
	}
}

func (s *AppointmentService) publish(ctx context.Context, event models.Event) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
