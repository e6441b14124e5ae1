package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okil-ai/consult-api/internal/models"
)

func expectLawyerLock(mock sqlmock.Sqlmock, lawyerID string) {
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs(lawyerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestCreateBatchInsertsSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slots := []models.AvailabilitySlot{
		{StartAt: start, EndAt: start.Add(30 * time.Minute)},
		{StartAt: start.Add(30 * time.Minute), EndAt: start.Add(time.Hour)},
	}

	mock.ExpectBegin()
	expectLawyerLock(mock, "l1")
	for _, slot := range slots {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM availability_slots")).
			WithArgs("l1", slot.StartAt, slot.EndAt).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("INSERT INTO availability_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBatch(context.Background(), "l1", slots))
	for _, slot := range slots {
		assert.NotEmpty(t, slot.ID)
		assert.Equal(t, "l1", slot.LawyerID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchRejectsOverlap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectLawyerLock(mock, "l1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), "l1", []models.AvailabilitySlot{{StartAt: start, EndAt: start.Add(time.Hour)}})
	assert.ErrorIs(t, err, ErrSlotOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "lawyer_id", "start_at", "end_at", "is_booked", "created_at", "updated_at"}).
		AddRow("s1", "l1", from.Add(time.Hour), from.Add(90*time.Minute), false, from, from)
	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_slots WHERE lawyer_id = $1 AND is_booked = FALSE AND start_at >= $2 AND start_at < $3 ORDER BY start_at ASC")).
		WithArgs("l1", from, to).
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.AvailabilityFilter{LawyerID: "l1", OpenOnly: true, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "s1", slots[0].ID)
}

func TestDeleteSlotGuards(t *testing.T) {
	cases := []struct {
		name    string
		owner   string
		booked  bool
		lockErr error
		want    error
	}{
		{name: "missing", lockErr: sql.ErrNoRows, want: sql.ErrNoRows},
		{name: "other lawyer", owner: "l2", want: ErrSlotNotOwned},
		{name: "booked", owner: "l1", booked: true, want: ErrSlotTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newMock(t)
			defer cleanup()
			repo := NewAvailabilityRepository(db)

			mock.ExpectBegin()
			q := mock.ExpectQuery(regexp.QuoteMeta("SELECT lawyer_id, is_booked FROM availability_slots WHERE id = $1 FOR UPDATE")).WithArgs("s1")
			if tc.lockErr != nil {
				q.WillReturnError(tc.lockErr)
			} else {
				q.WillReturnRows(sqlmock.NewRows([]string{"lawyer_id", "is_booked"}).AddRow(tc.owner, tc.booked))
			}
			mock.ExpectRollback()

			err := repo.Delete(context.Background(), "s1", "l1")
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteSlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lawyer_id, is_booked FROM availability_slots")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"lawyer_id", "is_booked"}).AddRow("l1", false))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_slots WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1", "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
