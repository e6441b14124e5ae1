package repository

import "errors"

var (
	ErrSlotNotFound = errors.New("availability slot not found")
	ErrSlotTaken    = errors.New("availability slot already booked")
	ErrSlotOverlap  = errors.New("availability slot overlaps an existing slot")
	ErrSlotNotOwned = errors.New("availability slot belongs to another lawyer")
	ErrTimeTaken    = errors.New("lawyer already has an appointment at that time")
)

// lockLawyerQuery serializes schedule mutations for one lawyer until the transaction ends.
const lockLawyerQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`
