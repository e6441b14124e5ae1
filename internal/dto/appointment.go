package dto

import (
	"strings"

	"github.com/okil-ai/consult-api/internal/models"
)

// CreateAppointmentRequest books either a published slot or a free-form date and time.
type CreateAppointmentRequest struct {
	LawyerID    string  `json:"lawyer_id" validate:"required"`
	SlotID      *string `json:"slot_id" validate:"omitempty,min=1"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string  `json:"time" validate:"omitempty,datetime=15:04"`
	Description string  `json:"description" validate:"max=2000"`
	Message     string  `json:"message" validate:"max=2000"`
}

// Issue returns the client's description of the matter. message is accepted as an alias
// for description; description wins when both are sent.
func (r CreateAppointmentRequest) Issue() string {
	if strings.TrimSpace(r.Description) != "" {
		return strings.TrimSpace(r.Description)
	}
	return strings.TrimSpace(r.Message)
}

// UpdateAppointmentRequest changes status or reschedules. Any of slot_id, date or time
// means a reschedule.
type UpdateAppointmentRequest struct {
	Status *models.AppointmentStatus `json:"status"`
	SlotID *string                   `json:"slot_id" validate:"omitempty,min=1"`
	Date   *string                   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time   *string                   `json:"time" validate:"omitempty,datetime=15:04"`
}

// IsReschedule reports whether the payload carries a new schedule.
func (r UpdateAppointmentRequest) IsReschedule() bool {
	return r.SlotID != nil || r.Date != nil || r.Time != nil
}

// AppointmentListQuery filters appointment listings.
type AppointmentListQuery struct {
	Status       string `form:"status"`
	UpdatedSince string `form:"updated_since"`
}
