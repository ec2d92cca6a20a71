package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// Session is a single concrete appointment on the practice timeline.
// ScheduledAt is always a UTC instant; wall-clock fields are derived only
// through the configured practice timezone.
type Session struct {
	ID              int64         `json:"id"`
	PatientID       int64         `json:"patient_id"`
	GroupID         *uuid.UUID    `json:"group_id,omitempty"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Category        string        `json:"category"`
	Price           *float64      `json:"price"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Notes           *string       `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// End returns the instant the session finishes, without any buffer.
func (s *Session) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

func (s *Session) IsCancelled() bool {
	return s.PaymentStatus == PaymentStatusCancelled
}

// SessionDetail is the store-read shape: a session joined with its owning
// patient's display name, plus the linked financial record when one exists.
type SessionDetail struct {
	Session
	PatientName string           `json:"patient_name"`
	Record      *FinancialRecord `json:"financial_record,omitempty"`
}
