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

const appointmentSelect = `SELECT a.id, a.user_id, a.lawyer_id, a.slot_id, a.scheduled_at, a.description, a.status,
       a.created_at, a.updated_at, cu.full_name AS user_name, lu.full_name AS lawyer_name
FROM appointments a
JOIN users cu ON cu.id = a.user_id
JOIN users lu ON lu.id = a.lawyer_id`

// AppointmentRepository persists appointments together with the slot bookings they hold.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// CreateBooking inserts appt in one transaction with its slot booking. For slot-backed
// appointments the slot is flipped with a compare-and-set and its start becomes
// ScheduledAt. Either way the instant is checked against the lawyer's active bookings.
func (r *AppointmentRepository) CreateBooking(ctx context.Context, appt *models.Appointment) (err error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	appt.UpdatedAt = appt.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lockLawyerQuery, appt.LawyerID); err != nil {
		return fmt.Errorf("lock lawyer schedule: %w", err)
	}

	if appt.SlotID != nil {
		var startAt time.Time
		if startAt, err = bindSlot(ctx, tx, *appt.SlotID, appt.LawyerID, appt.CreatedAt); err != nil {
			return err
		}
		appt.ScheduledAt = startAt
	}
	if err = checkTimeConflict(ctx, tx, appt.LawyerID, appt.ScheduledAt, ""); err != nil {
		return err
	}

	const insertQuery = `INSERT INTO appointments (id, user_id, lawyer_id, slot_id, scheduled_at, description, status, created_at, updated_at)
VALUES (:id, :user_id, :lawyer_id, :slot_id, :scheduled_at, :description, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, appt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// FindByID fetches an appointment with participant names.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, appointmentSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

// List returns appointments matching filter, newest scheduled first.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	var (
		args       []interface{}
		conditions []string
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if filter.LawyerID != "" {
		args = append(args, filter.LawyerID)
		conditions = append(conditions, fmt.Sprintf("a.lawyer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.UpdatedSince != nil {
		args = append(args, *filter.UpdatedSince)
		conditions = append(conditions, fmt.Sprintf("a.updated_at > $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("a.scheduled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("a.scheduled_at < $%d", len(args)))
	}

	query := appointmentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.scheduled_at DESC, a.created_at DESC"

	appts := make([]models.Appointment, 0)
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// TransitionParams describes one committed status change.
type TransitionParams struct {
	ID          string
	LawyerID    string
	From        models.AppointmentStatus
	To          models.AppointmentStatus
	SlotID      *string
	ScheduledAt time.Time
	Description string
	UpdatedAt   time.Time
	// BindSlotID is booked with a compare-and-set before the status update.
	BindSlotID *string
	// ReleaseSlotID is freed after the status update.
	ReleaseSlotID *string
	// CheckTimeConflict rejects a free-form time already held by another active appointment.
	// Bound slots are always checked.
	CheckTimeConflict bool
}

// ApplyTransition updates the appointment only while its status still equals From.
// A lost race yields sql.ErrNoRows; slot bookings made in the same call are rolled back.
func (r *AppointmentRepository) ApplyTransition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lockLawyerQuery, params.LawyerID); err != nil {
		return fmt.Errorf("lock lawyer schedule: %w", err)
	}

	if params.BindSlotID != nil {
		var startAt time.Time
		if startAt, err = bindSlot(ctx, tx, *params.BindSlotID, params.LawyerID, params.UpdatedAt); err != nil {
			return err
		}
		params.ScheduledAt = startAt
	}
	if params.CheckTimeConflict || params.BindSlotID != nil {
		if err = checkTimeConflict(ctx, tx, params.LawyerID, params.ScheduledAt, params.ID); err != nil {
			return err
		}
	}

	const updateQuery = `UPDATE appointments
SET status = $1, slot_id = $2, scheduled_at = $3, description = $4, updated_at = $5
WHERE id = $6 AND status = $7`
	result, err := tx.ExecContext(ctx, updateQuery, params.To, params.SlotID, params.ScheduledAt, params.Description, params.UpdatedAt, params.ID, params.From)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if params.ReleaseSlotID != nil {
		if err = releaseSlot(ctx, tx, *params.ReleaseSlotID, params.UpdatedAt); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit appointment transition: %w", err)
	}
	return nil
}

func checkTimeConflict(ctx context.Context, tx *sqlx.Tx, lawyerID string, at time.Time, excludeID string) error {
	statuses := make([]string, len(models.ActiveAppointmentStatuses))
	for i, s := range models.ActiveAppointmentStatuses {
		statuses[i] = string(s)
	}
	const query = `SELECT EXISTS (
	SELECT 1 FROM appointments
	WHERE lawyer_id = $1 AND scheduled_at = $2 AND status = ANY($3) AND ($4 = '' OR id::text <> $4)
)`
	var taken bool
	if err := tx.GetContext(ctx, &taken, query, lawyerID, at, pq.Array(statuses), excludeID); err != nil {
		return fmt.Errorf("check appointment time conflict: %w", err)
	}
	if taken {
		return ErrTimeTaken
	}
	return nil
}
