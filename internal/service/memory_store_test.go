package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/internal/repository"
)

// memoryStore mirrors the repository contracts in memory, including the
// compare-and-set guards the SQL statements enforce.
type memoryStore struct {
	mu           sync.Mutex
	slots        map[string]*models.AvailabilitySlot
	appointments map[string]*models.Appointment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{slots: map[string]*models.AvailabilitySlot{}, appointments: map[string]*models.Appointment{}}
}

func (m *memoryStore) addSlot(id, lawyerID string, start time.Time, length time.Duration) *models.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := &models.AvailabilitySlot{ID: id, LawyerID: lawyerID, StartAt: start, EndAt: start.Add(length)}
	m.slots[id] = slot
	return slot
}

func (m *memoryStore) addAppointment(appt models.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[appt.ID] = &appt
}

func (m *memoryStore) slot(id string) models.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memoryStore) CreateBatch(ctx context.Context, lawyerID string, slots []models.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range slots {
		for _, existing := range m.slots {
			if existing.LawyerID == lawyerID && existing.Overlaps(slots[i].StartAt, slots[i].EndAt) {
				return repository.ErrSlotOverlap
			}
		}
		for j := 0; j < i; j++ {
			if slots[j].Overlaps(slots[i].StartAt, slots[i].EndAt) {
				return repository.ErrSlotOverlap
			}
		}
	}
	for i := range slots {
		slots[i].ID = uuid.NewString()
		slots[i].LawyerID = lawyerID
		copied := slots[i]
		m.slots[copied.ID] = &copied
	}
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *slot
	return &copied, nil
}

func (m *memoryStore) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AvailabilitySlot, 0)
	for _, slot := range m.slots {
		if slot.LawyerID != filter.LawyerID || (filter.OpenOnly && slot.Booked) {
			continue
		}
		if filter.From != nil && slot.StartAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !slot.StartAt.Before(*filter.To) {
			continue
		}
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, id, lawyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	switch {
	case !ok:
		return sql.ErrNoRows
	case slot.LawyerID != lawyerID:
		return repository.ErrSlotNotOwned
	case slot.Booked:
		return repository.ErrSlotTaken
	}
	delete(m.slots, id)
	return nil
}

// appointmentStore view

type memoryAppointments struct{ *memoryStore }

func (m memoryAppointments) CreateBooking(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.SlotID != nil {
		start, err := m.bindLocked(*appt.SlotID, appt.LawyerID)
		if err != nil {
			return err
		}
		appt.ScheduledAt = start
	}
	if m.timeTakenLocked(appt.LawyerID, appt.ScheduledAt, "") {
		if appt.SlotID != nil {
			m.slots[*appt.SlotID].Booked = false
		}
		return repository.ErrTimeTaken
	}
	appt.ID = uuid.NewString()
	appt.UpdatedAt = appt.CreatedAt
	copied := *appt
	m.appointments[appt.ID] = &copied
	return nil
}

func (m memoryAppointments) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *appt
	return &copied, nil
}

func (m memoryAppointments) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Appointment, 0)
	for _, appt := range m.appointments {
		if filter.UserID != "" && appt.UserID != filter.UserID {
			continue
		}
		if filter.LawyerID != "" && appt.LawyerID != filter.LawyerID {
			continue
		}
		if filter.Status != nil && appt.Status != *filter.Status {
			continue
		}
		if filter.UpdatedSince != nil && !appt.UpdatedAt.After(*filter.UpdatedSince) {
			continue
		}
		if filter.From != nil && appt.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !appt.ScheduledAt.Before(*filter.To) {
			continue
		}
		out = append(out, *appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

func (m memoryAppointments) ApplyTransition(ctx context.Context, params repository.TransitionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[params.ID]
	if !ok || appt.Status != params.From {
		return sql.ErrNoRows
	}
	if params.BindSlotID != nil {
		start, err := m.bindLocked(*params.BindSlotID, params.LawyerID)
		if err != nil {
			return err
		}
		params.ScheduledAt = start
	}
	if (params.CheckTimeConflict || params.BindSlotID != nil) && m.timeTakenLocked(params.LawyerID, params.ScheduledAt, params.ID) {
		if params.BindSlotID != nil {
			m.slots[*params.BindSlotID].Booked = false
		}
		return repository.ErrTimeTaken
	}
	appt.Status = params.To
	appt.SlotID = params.SlotID
	appt.ScheduledAt = params.ScheduledAt
	appt.Description = params.Description
	appt.UpdatedAt = params.UpdatedAt
	if params.ReleaseSlotID != nil {
		if slot, ok := m.slots[*params.ReleaseSlotID]; ok {
			slot.Booked = false
		}
	}
	return nil
}

func (m *memoryStore) bindLocked(slotID, lawyerID string) (time.Time, error) {
	slot, ok := m.slots[slotID]
	if !ok || slot.LawyerID != lawyerID {
		return time.Time{}, repository.ErrSlotNotFound
	}
	if slot.Booked {
		return time.Time{}, repository.ErrSlotTaken
	}
	slot.Booked = true
	return slot.StartAt, nil
}

func (m *memoryStore) timeTakenLocked(lawyerID string, at time.Time, excludeID string) bool {
	for _, appt := range m.appointments {
		if appt.LawyerID != lawyerID || appt.ID == excludeID || !appt.ScheduledAt.Equal(at) {
			continue
		}
		for _, active := range models.ActiveAppointmentStatuses {
			if appt.Status == active {
				return true
			}
		}
	}
	return false
}
