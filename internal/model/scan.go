package model

import "time"

// Outcome is the terminal result of a scan attempt.
type Outcome string

// Scan outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
	OutcomeUnknown Outcome = "unknown"
)

// ScanRecord is a persisted entry of a user's scan history.
type ScanRecord struct {
	ScannedAt   time.Time `json:"scanned_at"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Category    Category  `json:"category"`
	ObjectLabel string    `json:"object_label"`
	Confidence  float64   `json:"confidence"`
}
