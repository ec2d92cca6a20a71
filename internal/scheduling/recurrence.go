package scheduling

import (
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/google/uuid"
)

// DefaultCategory labels generated sessions whose pattern carries no
// category of its own.
const DefaultCategory = "session"

// GeneratePlan expands a patient's weekly schedule patterns into concrete,
// unvalidated session candidates covering horizonWeeks from now. Every
// candidate shares one batch group id. Patterns with an as_needed frequency
// produce exactly one session each; otherwise ceil(horizon/interval)
// sessions spaced interval weeks apart. No candidate is ever scheduled
// before now.
func (p Params) GeneratePlan(patient *models.Patient, schedules []models.SessionSchedule, now time.Time, horizonWeeks int) []models.Session {
	interval := patient.Frequency.IntervalWeeks()
	count := 1
	if interval > 0 {
		count = (horizonWeeks + interval - 1) / interval
	}

	groupID := uuid.New()
	plan := make([]models.Session, 0, count*len(schedules))
	for _, sched := range schedules {
		first := p.NextOccurrence(now, sched.Weekday, sched.Hour, sched.Minute)
		// Step in the practice timezone so the wall clock survives DST.
		firstLocal := first.In(p.location())
		for i := 0; i < count; i++ {
			occurrence := firstLocal.AddDate(0, 0, 7*interval*i)
			plan = append(plan, models.Session{
				PatientID:       patient.ID,
				GroupID:         &groupID,
				ScheduledAt:     occurrence.UTC(),
				DurationMinutes: int(p.durationOf(sched.DurationMinutes) / time.Minute),
				Category:        categoryOf(sched),
				Price:           priceOf(sched, patient),
				PaymentStatus:   statusOf(sched),
			})
		}
	}
	return plan
}

func categoryOf(sched models.SessionSchedule) string {
	if sched.Category == "" {
		return DefaultCategory
	}
	return sched.Category
}

func priceOf(sched models.SessionSchedule, patient *models.Patient) *float64 {
	if sched.Price != nil {
		return sched.Price
	}
	return patient.DefaultPrice
}

func statusOf(sched models.SessionSchedule) models.PaymentStatus {
	if sched.PaymentStatus.Valid() {
		return sched.PaymentStatus
	}
	return models.PaymentStatusPending
}
