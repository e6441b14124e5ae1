package models

import "time"

// EventType names a domain event published after a committed mutation.
type EventType string

const (
	EventAppointmentBooked      EventType = "appointment.booked"
	EventAppointmentStatus      EventType = "appointment.status_changed"
	EventAppointmentRescheduled EventType = "appointment.rescheduled"
	EventQueryCreated           EventType = "query.created"
	EventQueryStatus            EventType = "query.status_changed"
	EventAccountVerification    EventType = "account.verification"
	EventPasswordReset          EventType = "account.password_reset"
)

// Transactional reports whether the event must be mailed even when lifecycle
// notifications are switched off.
func (t EventType) Transactional() bool {
	return t == EventAccountVerification || t == EventPasswordReset
}

// Event carries what a notifier needs to address the counterpart of a change.
type Event struct {
	Type        EventType  `json:"type"`
	EntityID    string     `json:"entity_id"`
	ActorID     string     `json:"actor_id"`
	RecipientID string     `json:"recipient_id"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Link        string     `json:"-"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
