package dto

import "time"

// CreateExportRequest renders the caller's appointments between two days inclusive.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	From   string `json:"from" validate:"required,datetime=2006-01-02"`
	To     string `json:"to" validate:"required,datetime=2006-01-02"`
}

// ExportResponse carries the signed download link.
type ExportResponse struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}
