package scheduling

import (
	"fmt"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
)

// ConflictError is the typed failure for any operation that collides with
// an existing session. It names the patient whose session blocks the
// candidate and suggests the next free start instead; callers surface it,
// never resolve it silently.
type ConflictError struct {
	PatientName    string    `json:"conflicting_patient"`
	SuggestedStart time.Time `json:"suggested_start"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"time conflicts with a session for %s; next free slot at %s",
		e.PatientName,
		e.SuggestedStart.Format(time.RFC3339),
	)
}

// ValidateBatch checks a generated batch, in generation order, against the
// existing timeline plus every candidate already accepted, so two candidates
// of the same batch can never overlap each other. The first collision aborts
// the whole batch with a ConflictError carrying a suggested alternative for
// the blocked candidate. On success the full batch is returned for atomic
// persistence.
func (p Params) ValidateBatch(patientName string, candidates []models.Session, existing []models.SessionDetail) ([]models.Session, error) {
	occupied := make([]models.SessionDetail, 0, len(existing)+len(candidates))
	occupied = append(occupied, existing...)

	for _, candidate := range candidates {
		duration := p.durationOf(candidate.DurationMinutes)
		conflict := p.FindConflict(occupied, candidate.ScheduledAt, duration, 0)
		if conflict != nil {
			name := conflict.PatientName
			if name == "" {
				name = patientName
			}
			return nil, &ConflictError{
				PatientName:    name,
				SuggestedStart: p.NextFreeSlot(occupied, candidate.ScheduledAt, duration, 0),
			}
		}
		occupied = append(occupied, models.SessionDetail{Session: candidate, PatientName: patientName})
	}
	return candidates, nil
}
