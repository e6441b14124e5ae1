package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AvailabilitySlot is a bookable window published by a lawyer. Booked is flipped by
// the booking workflow only, never directly by clients.
type AvailabilitySlot struct {
	ID        string    `db:"id" json:"id"`
	LawyerID  string    `db:"lawyer_id" json:"lawyer_id"`
	StartAt   time.Time `db:"start_at" json:"start_at"`
	EndAt     time.Time `db:"end_at" json:"end_at"`
	Booked    bool      `db:"is_booked" json:"is_booked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the slot intersects [start, end). Touching edges do not overlap.
func (s AvailabilitySlot) Overlaps(start, end time.Time) bool {
	return s.StartAt.Before(end) && start.Before(s.EndAt)
}

// Window is a half-open time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// SplitWindow cuts [start, end) into contiguous segments of length seg.
// A trailing remainder shorter than seg is dropped.
func SplitWindow(start, end time.Time, seg time.Duration) []Window {
	if seg <= 0 || !end.After(start) {
		return nil
	}
	var out []Window
	for cur := start; !cur.Add(seg).After(end); cur = cur.Add(seg) {
		out = append(out, Window{Start: cur, End: cur.Add(seg)})
	}
	return out
}

// AvailabilityFilter narrows slot listings. Zero values are ignored.
type AvailabilityFilter struct {
	LawyerID string
	From     *time.Time
	To       *time.Time
	OpenOnly bool
}

// DayBounds returns [00:00, 24:00) UTC of the day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// CombineDateTime parses a "YYYY-MM-DD" date and "HH:MM" time as a UTC instant.
func CombineDateTime(date, clock string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, time.UTC)
}
