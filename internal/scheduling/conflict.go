package scheduling

import (
	"sort"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
)

type busySpan struct {
	start   time.Time
	end     time.Time // session end, buffer not applied
	session *models.SessionDetail
}

// busySpans filters out cancelled sessions and the excluded id, and returns
// the remaining occupied intervals in chronological order.
func busySpans(sessions []models.SessionDetail, excludeID int64) []busySpan {
	spans := make([]busySpan, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if s.IsCancelled() {
			continue
		}
		if excludeID != 0 && s.ID == excludeID {
			continue
		}
		spans = append(spans, busySpan{start: s.ScheduledAt, end: s.End(), session: s})
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})
	return spans
}

// FindConflict returns the chronologically first non-cancelled session whose
// interval collides with [start, start+duration), counting the configured
// buffer after the earlier of the two intervals. excludeID skips one session
// for reschedule and edit flows; pass 0 to check against everything.
func (p Params) FindConflict(sessions []models.SessionDetail, start time.Time, duration time.Duration, excludeID int64) *models.SessionDetail {
	if duration <= 0 {
		duration = p.DefaultDuration
	}
	end := start.Add(duration)
	for _, span := range busySpans(sessions, excludeID) {
		// Two intervals collide when each starts before the other's
		// buffered end.
		if start.Before(span.end.Add(p.Buffer)) && span.start.Before(end.Add(p.Buffer)) {
			return span.session
		}
	}
	return nil
}

// NextFreeSlot walks forward from the candidate start and returns the
// earliest instant where a session of the given duration fits without
// colliding (buffer included) with any occupied interval. The result is
// never earlier than the candidate start.
func (p Params) NextFreeSlot(sessions []models.SessionDetail, start time.Time, duration time.Duration, excludeID int64) time.Time {
	if duration <= 0 {
		duration = p.DefaultDuration
	}
	cursor := start
	for _, span := range busySpans(sessions, excludeID) {
		if !span.end.Add(p.Buffer).After(cursor) {
			// Entirely behind the cursor, including its buffer.
			continue
		}
		if !cursor.Add(duration + p.Buffer).After(span.start) {
			// The candidate ends, buffer and all, before this span starts.
			return cursor
		}
		cursor = span.end.Add(p.Buffer)
	}
	return cursor
}
