package models

import (
	"encoding/json"
	"time"
)

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	AppointmentPending     AppointmentStatus = "pending"
	AppointmentApproved    AppointmentStatus = "approved"
	AppointmentRejected    AppointmentStatus = "rejected"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentCompleted   AppointmentStatus = "completed"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:     {AppointmentApproved, AppointmentRejected, AppointmentCancelled},
	AppointmentApproved:    {AppointmentRescheduled, AppointmentCancelled, AppointmentCompleted},
	AppointmentRescheduled: {AppointmentApproved, AppointmentRejected, AppointmentCancelled},
}

// ActiveAppointmentStatuses block the lawyer's time for free-form bookings.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentPending, AppointmentApproved, AppointmentRescheduled, AppointmentCompleted,
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentApproved, AppointmentRejected,
		AppointmentRescheduled, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// HoldsSlot reports whether an appointment in s keeps its slot reserved for itself and may still release it.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == AppointmentPending || s == AppointmentApproved || s == AppointmentRescheduled
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, candidate := range appointmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Appointment is a booking between a client and a lawyer. SlotID is set only for slot-backed bookings.
type Appointment struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"user_id"`
	LawyerID    string            `db:"lawyer_id" json:"lawyer_id"`
	SlotID      *string           `db:"slot_id" json:"slot_id,omitempty"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Description string            `db:"description" json:"description"`
	Status      AppointmentStatus `db:"status" json:"status"`
	UserName    string            `db:"user_name" json:"user_name,omitempty"`
	LawyerName  string            `db:"lawyer_name" json:"lawyer_name,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// MarshalJSON adds the UTC date and time of the appointment as separate fields.
func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	scheduled := a.ScheduledAt.UTC()
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
		Time string `json:"time"`
	}{plain: plain(a), Date: scheduled.Format(DateLayout), Time: scheduled.Format(TimeLayout)})
}

// IsParticipant reports whether userID is the client or the lawyer of the appointment.
func (a *Appointment) IsParticipant(userID string) bool {
	return a.UserID == userID || a.LawyerID == userID
}

// RescheduleNote is appended to the description when the appointment is moved away from from.
func RescheduleNote(from time.Time) string {
	return " (Rescheduled from " + from.UTC().Format(DateLayout+" "+TimeLayout) + ")"
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	UserID       string
	LawyerID     string
	Status       *AppointmentStatus
	UpdatedSince *time.Time
	From         *time.Time
	To           *time.Time
}
