package models

import "time"

// FinancialRecord is the bookkeeping entry linked to at most one session.
// It is removed when a still-future session is cancelled, and its date
// follows the session whenever a paid session is rescheduled.
type FinancialRecord struct {
	ID              int64     `json:"id"`
	SessionID       int64     `json:"session_id"`
	PatientID       int64     `json:"patient_id"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}
