package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAsNeeded Frequency = "as_needed"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyAsNeeded:
		return true
	}
	return false
}

// IntervalWeeks maps a recurrence frequency to the spacing between generated
// sessions. Zero means "generate a single session on demand".
func (f Frequency) IntervalWeeks() int {
	switch f {
	case FrequencyWeekly:
		return 1
	case FrequencyBiweekly:
		return 2
	case FrequencyMonthly:
		return 4
	default:
		return 0
	}
}

// SessionSchedule is a recurring weekly slot for one patient: a weekday plus
// a wall-clock time in the practice timezone, and the defaults each generated
// session inherits.
type SessionSchedule struct {
	ID              int64         `json:"id"`
	PatientID       int64         `json:"patient_id"`
	Weekday         int           `json:"weekday"` // 0 = Sunday .. 6 = Saturday
	Hour            int           `json:"hour"`
	Minute          int           `json:"minute"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Category        string        `json:"category"`
	DurationMinutes int           `json:"duration_minutes"`
	Price           *float64      `json:"price"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ClockTime renders the schedule's wall-clock time as HH:mm.
func (s *SessionSchedule) ClockTime() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ParseClockTime parses an HH:mm wall-clock string.
func ParseClockTime(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock time %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock time %q", value)
	}
	return hour, minute, nil
}

type Patient struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Frequency    Frequency         `json:"frequency"`
	DefaultPrice *float64          `json:"default_price"`
	AutoRenew    bool              `json:"auto_renew"`
	Active       bool              `json:"active"`
	Schedules    []SessionSchedule `json:"schedules,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
