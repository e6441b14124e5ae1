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

type queryStore interface {
	Create(ctx context.Context, q *models.Query) error
	FindByID(ctx context.Context, id string) (*models.Query, error)
	List(ctx context.Context, filter models.QueryFilter) ([]models.Query, error)
	UpdateStatus(ctx context.Context, params repository.QueryStatusParams) (*models.Query, error)
	UpdateContent(ctx context.Context, id, userID, subject, description string, updatedAt time.Time) (*models.Query, error)
}

// QueryService handles written legal queries and their review lifecycle.
type QueryService struct {
	queries   queryStore
	lawyers   lawyerFinder
	events    EventPublisher
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewQueryService constructs the service; events and metrics may be nil.
func NewQueryService(queries queryStore, lawyers lawyerFinder, events EventPublisher, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if isNil(events) {
		events = nil
	}
	return &QueryService{
		queries:   queries,
		lawyers:   lawyers,
		events:    events,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       utcNow,
	}
}

// Create submits a query in pending, optionally addressed to one lawyer.
func (s *QueryService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateQueryRequest) (*models.Query, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if claims.Role != models.RoleUser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients can submit queries")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid query payload")
	}
	subject := strings.TrimSpace(req.Subject)
	description := strings.TrimSpace(req.Description)
	if subject == "" || description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject and description are required")
	}

	lawyerID := trimmedOrNil(req.LawyerID)
	if lawyerID != nil {
		if _, err := s.lawyers.FindLawyer(ctx, *lawyerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "lawyer not found")
			}
			return nil, appErrors.Internal(err, "failed to load lawyer")
		}
	}

	now := s.now()
	q := &models.Query{
		UserID:      claims.UserID,
		LawyerID:    lawyerID,
		Subject:     subject,
		Description: description,
		Status:      models.QueryPending,
		CreatedAt:   now,
	}
	if err := s.queries.Create(ctx, q); err != nil {
		return nil, appErrors.Internal(err, "failed to create query")
	}

	if lawyerID != nil {
		s.publish(ctx, models.Event{
			Type:        models.EventQueryCreated,
			EntityID:    q.ID,
			ActorID:     claims.UserID,
			RecipientID: *lawyerID,
			Status:      string(q.Status),
			Subject:     q.Subject,
			OccurredAt:  now,
		})
	}
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionQueryCreate,
		Resource:   "query",
		ResourceID: &q.ID,
	})
	return q, nil
}

// Update applies either a lawyer status change or an owner content edit.
func (s *QueryService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateQueryRequest) (*models.Query, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid query update")
	}
	if req.Status != nil && req.IsContentEdit() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status and content cannot change together")
	}
	if req.Status == nil && !req.IsContentEdit() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status or content is required")
	}

	q, err := s.queries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "query not found")
		}
		return nil, appErrors.Internal(err, "failed to load query")
	}

	if req.Status != nil {
		return s.transition(ctx, claims, q, req)
	}
	return s.editContent(ctx, claims, q, req)
}

func (s *QueryService) transition(ctx context.Context, claims *models.JWTClaims, q *models.Query, req dto.UpdateQueryRequest) (*models.Query, error) {
	if !claims.IsLawyer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lawyers can change query status")
	}
	if q.LawyerID != nil && !q.AssignedTo(claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "query is assigned to another lawyer")
	}
	target := *req.Status
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", target))
	}
	if q.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("query is already %s", q.Status))
	}
	if !q.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move query from %s to %s", q.Status, target))
	}

	params := repository.QueryStatusParams{
		ID:        q.ID,
		LawyerID:  claims.UserID,
		From:      q.Status,
		To:        target,
		Note:      trimmedOrNil(req.Note),
		UpdatedAt: s.now(),
	}
	if target == models.QueryAnswered {
		params.Answer = trimmedOrNil(req.Answer)
		if params.Answer == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "an answer is required")
		}
	}

	updated, err := s.queries.UpdateStatus(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "query was changed concurrently; refresh and retry")
		}
		return nil, appErrors.Internal(err, "failed to update query")
	}
	s.metrics.RecordTransition("query", string(target))

	s.publish(ctx, models.Event{
		Type:        models.EventQueryStatus,
		EntityID:    q.ID,
		ActorID:     claims.UserID,
		RecipientID: q.UserID,
		Status:      string(target),
		Subject:     q.Subject,
		OccurredAt:  params.UpdatedAt,
	})
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionQueryUpdate,
		Resource:   "query",
		ResourceID: &q.ID,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, q.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, target)),
	})
	return updated, nil
}

func (s *QueryService) editContent(ctx context.Context, claims *models.JWTClaims, q *models.Query, req dto.UpdateQueryRequest) (*models.Query, error) {
	if q.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit a query")
	}
	if !q.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("query can no longer be edited once %s", q.Status))
	}
	subject, description := q.Subject, q.Description
	if v := trimmedOrNil(req.Subject); v != nil {
		subject = *v
	}
	if v := trimmedOrNil(req.Description); v != nil {
		description = *v
	}

	updated, err := s.queries.UpdateContent(ctx, q.ID, claims.UserID, subject, description, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "query was changed concurrently; refresh and retry")
		}
		return nil, appErrors.Internal(err, "failed to update query")
	}
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionQueryUpdate,
		Resource:   "query",
		ResourceID: &q.ID,
		NewValues:  []byte(`{"content":"edited"}`),
	})
	return updated, nil
}

// List returns a client's own queries, or a lawyer's assigned and unassigned ones.
func (s *QueryService) List(ctx context.Context, claims *models.JWTClaims, query dto.QueryListQuery) ([]models.Query, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	filter := models.QueryFilter{}
	if claims.IsLawyer() {
		filter.LawyerID = claims.UserID
		filter.IncludeUnassigned = true
	} else {
		filter.UserID = claims.UserID
	}
	if query.Status != "" {
		status := models.QueryStatus(strings.ToLower(strings.TrimSpace(query.Status)))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
		}
		filter.Status = &status
	}

	items, err := s.queries.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list queries")
	}
	return items, nil
}

// Get returns a query to its author, its lawyer, or any lawyer while unassigned.
func (s *QueryService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Query, error) {
	if err := requireSession(claims); err != nil {
		return nil, err
	}
	q, err := s.queries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "query not found")
		}
		return nil, appErrors.Internal(err, "failed to load query")
	}
	visible := q.UserID == claims.UserID || q.AssignedTo(claims.UserID) || (claims.IsLawyer() && q.LawyerID == nil)
	if !visible {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "query is not visible to this account")
	}
	return q, nil
}

func (s *QueryService) publish(ctx context.Context, event models.Event) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}
