package models

import "time"

// QueryStatus is the lifecycle state of a legal query.
type QueryStatus string

const (
	QueryPending       QueryStatus = "pending"
	QueryAccepted      QueryStatus = "accepted"
	QueryInfoRequested QueryStatus = "info_requested"
	QueryRejected      QueryStatus = "rejected"
	QueryAnswered      QueryStatus = "answered"
	QueryClosed        QueryStatus = "closed"
)

var queryTransitions = map[QueryStatus][]QueryStatus{
	QueryPending:       {QueryAccepted, QueryInfoRequested, QueryRejected},
	QueryInfoRequested: {QueryAccepted, QueryRejected},
	QueryAccepted:      {QueryAnswered, QueryClosed},
}

func (s QueryStatus) Valid() bool {
	switch s {
	case QueryPending, QueryAccepted, QueryInfoRequested, QueryRejected, QueryAnswered, QueryClosed:
		return true
	}
	return false
}

func (s QueryStatus) IsTerminal() bool {
	return len(queryTransitions[s]) == 0
}

func (s QueryStatus) CanTransitionTo(next QueryStatus) bool {
	for _, candidate := range queryTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Editable reports whether the owner may still change subject and description.
func (s QueryStatus) Editable() bool {
	return s == QueryPending || s == QueryInfoRequested
}

// Query is a written legal question. LawyerID stays nil until a lawyer claims it.
type Query struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	LawyerID    *string     `db:"lawyer_id" json:"lawyer_id,omitempty"`
	Subject     string      `db:"subject" json:"subject"`
	Description string      `db:"description" json:"description"`
	Status      QueryStatus `db:"status" json:"status"`
	Note        *string     `db:"note" json:"note,omitempty"`
	Answer      *string     `db:"answer" json:"answer,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// AssignedTo reports whether lawyerID holds the query.
func (q *Query) AssignedTo(lawyerID string) bool {
	return q.LawyerID != nil && *q.LawyerID == lawyerID
}

// QueryFilter narrows query listings. IncludeUnassigned adds queries no lawyer holds yet.
type QueryFilter struct {
	UserID            string
	LawyerID          string
	IncludeUnassigned bool
	Status            *QueryStatus
}
