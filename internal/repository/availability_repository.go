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

const slotColumns = `id, lawyer_id, start_at, end_at, is_booked, created_at, updated_at`

// AvailabilityRepository persists lawyer availability slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// CreateBatch inserts slots for a single lawyer atomically. Any overlap with an
// existing slot of that lawyer aborts the whole batch with ErrSlotOverlap.
func (r *AvailabilityRepository) CreateBatch(ctx context.Context, lawyerID string, slots []models.AvailabilitySlot) (err error) {
	if len(slots) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lockLawyerQuery, lawyerID); err != nil {
		return fmt.Errorf("lock lawyer schedule: %w", err)
	}

	const overlapQuery = `SELECT EXISTS (SELECT 1 FROM availability_slots WHERE lawyer_id = $1 AND start_at < $3 AND end_at > $2)`
	const insertQuery = `INSERT INTO availability_slots (id, lawyer_id, start_at, end_at, is_booked, created_at, updated_at)
VALUES (:id, :lawyer_id, :start_at, :end_at, :is_booked, :created_at, :updated_at)`

	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.LawyerID = lawyerID
		slot.Booked = false
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = slot.CreatedAt

		var overlaps bool
		if err = tx.GetContext(ctx, &overlaps, overlapQuery, lawyerID, slot.StartAt, slot.EndAt); err != nil {
			return fmt.Errorf("check slot overlap: %w", err)
		}
		if overlaps {
			err = ErrSlotOverlap
			return err
		}
		if _, err = tx.NamedExecContext(ctx, insertQuery, slot); err != nil {
			return fmt.Errorf("insert availability slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit availability slots: %w", err)
	}
	return nil
}

// FindByID fetches a slot by identifier.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`
	var slot models.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find availability slot: %w", err)
	}
	return &slot, nil
}

// List returns the lawyer's slots ordered by start time. OpenOnly restricts the
// result to unbooked slots starting at or after From.
func (r *AvailabilityRepository) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	args := []interface{}{filter.LawyerID}
	conditions := []string{"lawyer_id = $1"}
	if filter.OpenOnly {
		conditions = append(conditions, "is_booked = FALSE")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("start_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_at < $%d", len(args)))
	}

	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY start_at ASC`
	slots := make([]models.AvailabilitySlot, 0)
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// Delete removes an unbooked slot owned by lawyerID.
func (r *AvailabilityRepository) Delete(ctx context.Context, id, lawyerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		LawyerID string `db:"lawyer_id"`
		Booked   bool   `db:"is_booked"`
	}
	const selectQuery = `SELECT lawyer_id, is_booked FROM availability_slots WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, selectQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock availability slot: %w", err)
	}
	if current.LawyerID != lawyerID {
		err = ErrSlotNotOwned
		return err
	}
	if current.Booked {
		err = ErrSlotTaken
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit availability delete: %w", err)
	}
	return nil
}

// bindSlot marks an unbooked slot of lawyerID as booked and returns its start time.
func bindSlot(ctx context.Context, tx *sqlx.Tx, slotID, lawyerID string, now time.Time) (time.Time, error) {
	const casQuery = `UPDATE availability_slots SET is_booked = TRUE, updated_at = $3
WHERE id = $1 AND lawyer_id = $2 AND is_booked = FALSE RETURNING start_at`
	var startAt time.Time
	err := tx.GetContext(ctx, &startAt, casQuery, slotID, lawyerID, now)
	if err == nil {
		return startAt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("book availability slot: %w", err)
	}

	var booked bool
	const probeQuery = `SELECT is_booked FROM availability_slots WHERE id = $1 AND lawyer_id = $2`
	if err := tx.GetContext(ctx, &booked, probeQuery, slotID, lawyerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrSlotNotFound
		}
		return time.Time{}, fmt.Errorf("probe availability slot: %w", err)
	}
	return time.Time{}, ErrSlotTaken
}

func releaseSlot(ctx context.Context, tx *sqlx.Tx, slotID string, now time.Time) error {
	const query = `UPDATE availability_slots SET is_booked = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, slotID, now); err != nil {
		return fmt.Errorf("release availability slot: %w", err)
	}
	return nil
}
