package dto

import "github.com/okil-ai/consult-api/internal/models"

// CreateQueryRequest submits a written legal question, optionally to a chosen lawyer.
type CreateQueryRequest struct {
	Subject     string  `json:"subject" validate:"required,max=255"`
	Description string  `json:"description" validate:"required,max=5000"`
	LawyerID    *string `json:"lawyer_id" validate:"omitempty,min=1"`
}

// UpdateQueryRequest is either a lawyer status change or an owner content edit.
type UpdateQueryRequest struct {
	Status      *models.QueryStatus `json:"status"`
	Note        *string             `json:"note" validate:"omitempty,max=2000"`
	Answer      *string             `json:"answer" validate:"omitempty,max=10000"`
	Subject     *string             `json:"subject" validate:"omitempty,min=1,max=255"`
	Description *string             `json:"description" validate:"omitempty,min=1,max=5000"`
}

// IsContentEdit reports whether the payload edits subject or description.
func (r UpdateQueryRequest) IsContentEdit() bool {
	return r.Subject != nil || r.Description != nil
}

// QueryListQuery filters query listings.
type QueryListQuery struct {
	Status string `form:"status"`
}
