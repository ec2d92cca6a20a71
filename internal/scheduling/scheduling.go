// Package scheduling holds the pure session-scheduling engine: conflict
// detection, free-slot search, recurrence expansion and batch validation.
// Nothing in this package performs I/O; callers hand it a snapshot of the
// timeline and persist the results themselves.
package scheduling

import "time"

// Params carries the scheduling knobs that used to be scattered literals:
// the minimum gap between back-to-back sessions, the session length used
// when a pattern omits one, and the practice timezone that wall-clock
// fields are interpreted in.
type Params struct {
	Buffer          time.Duration
	DefaultDuration time.Duration
	Location        *time.Location
}

func NewParams(bufferMinutes, defaultMinutes int, loc *time.Location) Params {
	if loc == nil {
		loc = time.UTC
	}
	return Params{
		Buffer:          time.Duration(bufferMinutes) * time.Minute,
		DefaultDuration: time.Duration(defaultMinutes) * time.Minute,
		Location:        loc,
	}
}

func (p Params) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// NextOccurrence returns the first instant at or after the given one whose
// wall clock in the practice timezone lands on the requested weekday and
// time. A slot earlier today rolls to next week; a slot exactly at `after`
// is kept. The result is returned in UTC.
func (p Params) NextOccurrence(after time.Time, weekday, hour, minute int) time.Time {
	local := after.In(p.location())
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, p.location())
	if days := (weekday - int(local.Weekday()) + 7) % 7; days > 0 {
		candidate = candidate.AddDate(0, 0, days)
	}
	if candidate.Before(after) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate.UTC()
}

// WallClock derives the weekday and HH:mm fields of an instant in the
// practice timezone. Round-tripping through NextOccurrence preserves them.
func (p Params) WallClock(t time.Time) (weekday, hour, minute int) {
	local := t.In(p.location())
	return int(local.Weekday()), local.Hour(), local.Minute()
}

func (p Params) durationOf(minutes int) time.Duration {
	if minutes <= 0 {
		return p.DefaultDuration
	}
	return time.Duration(minutes) * time.Minute
}
