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

	"github.com/okil-ai/consult-api/internal/models"
)

const queryColumns = `id, user_id, lawyer_id, subject, description, status, note, answer, created_at, updated_at`

// QueryRepository persists legal queries.
type QueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository constructs the repository.
func NewQueryRepository(db *sqlx.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// Create inserts a new query.
func (r *QueryRepository) Create(ctx context.Context, q *models.Query) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	q.UpdatedAt = q.CreatedAt
	const query = `INSERT INTO queries (id, user_id, lawyer_id, subject, description, status, note, answer, created_at, updated_at)
VALUES (:id, :user_id, :lawyer_id, :subject, :description, :status, :note, :answer, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create query: %w", err)
	}
	return nil
}

// FindByID fetches a query by identifier.
func (r *QueryRepository) FindByID(ctx context.Context, id string) (*models.Query, error) {
	var q models.Query
	if err := r.db.GetContext(ctx, &q, `SELECT `+queryColumns+` FROM queries WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find query: %w", err)
	}
	return &q, nil
}

// List returns queries matching filter, newest first.
func (r *QueryRepository) List(ctx context.Context, filter models.QueryFilter) ([]models.Query, error) {
	var (
		args       []interface{}
		conditions []string
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.LawyerID != "" {
		args = append(args, filter.LawyerID)
		if filter.IncludeUnassigned {
			conditions = append(conditions, fmt.Sprintf("(lawyer_id = $%d OR lawyer_id IS NULL)", len(args)))
		} else {
			conditions = append(conditions, fmt.Sprintf("lawyer_id = $%d", len(args)))
		}
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + queryColumns + ` FROM queries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	items := make([]models.Query, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return items, nil
}

// QueryStatusParams describes a lawyer's status change.
type QueryStatusParams struct {
	ID        string
	LawyerID  string
	From      models.QueryStatus
	To        models.QueryStatus
	Note      *string
	Answer    *string
	UpdatedAt time.Time
}

// UpdateStatus applies the change while the status still equals From and the query is
// either unassigned or held by LawyerID. An unassigned query is claimed in the same
// statement. Returns sql.ErrNoRows when the guard no longer holds.
func (r *QueryRepository) UpdateStatus(ctx context.Context, params QueryStatusParams) (*models.Query, error) {
	const query = `UPDATE queries
SET status = $1, lawyer_id = $2, note = COALESCE($3, note), answer = COALESCE($4, answer), updated_at = $5
WHERE id = $6 AND status = $7 AND (lawyer_id IS NULL OR lawyer_id = $2)
RETURNING ` + queryColumns
	var updated models.Query
	err := r.db.GetContext(ctx, &updated, query, params.To, params.LawyerID, params.Note, params.Answer, params.UpdatedAt, params.ID, params.From)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update query status: %w", err)
	}
	return &updated, nil
}

// UpdateContent edits subject and description while the owner may still edit.
func (r *QueryRepository) UpdateContent(ctx context.Context, id, userID, subject, description string, updatedAt time.Time) (*models.Query, error) {
	const query = `UPDATE queries SET subject = $1, description = $2, updated_at = $3
WHERE id = $4 AND user_id = $5 AND status IN ('pending', 'info_requested')
RETURNING ` + queryColumns
	var updated models.Query
	if err := r.db.GetContext(ctx, &updated, query, subject, description, updatedAt, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update query content: %w", err)
	}
	return &updated, nil
}
