package dto

import (
	"time"

	"github.com/okil-ai/consult-api/internal/models"
)

// PublishSlotRequest accepts either explicit instants or a day with HH:MM bounds (UTC).
type PublishSlotRequest struct {
	StartAt   *time.Time `json:"start_at"`
	EndAt     *time.Time `json:"end_at"`
	Day       string     `json:"day" validate:"omitempty,datetime=2006-01-02"`
	StartTime string     `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   string     `json:"end_time" validate:"omitempty,datetime=15:04"`
}

// PublishWindowRequest publishes a window split into fixed-length segments.
type PublishWindowRequest struct {
	PublishSlotRequest
	SegmentMinutes int `json:"segment_minutes" validate:"omitempty,min=5,max=480"`
}

// Resolve returns the requested range. ok is false when neither form is complete.
func (r PublishSlotRequest) Resolve() (start, end time.Time, ok bool, err error) {
	if r.StartAt != nil && r.EndAt != nil {
		return r.StartAt.UTC(), r.EndAt.UTC(), true, nil
	}
	if r.Day == "" || r.StartTime == "" || r.EndTime == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if start, err = models.CombineDateTime(r.Day, r.StartTime); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if end, err = models.CombineDateTime(r.Day, r.EndTime); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return start, end, true, nil
}

// AvailabilityQuery filters public open slots.
type AvailabilityQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// AvailabilityHistoryQuery filters a lawyer's own slot history.
type AvailabilityHistoryQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// LawyerDirectoryQuery filters the public lawyer listing.
type LawyerDirectoryQuery struct {
	Search         string `form:"search"`
	Specialization string `form:"specialization"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}
