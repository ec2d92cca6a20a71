package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/adelarp/PraxisBack/internal/repository"
	"github.com/adelarp/PraxisBack/internal/scheduling"
	"go.uber.org/zap"
)

type sessionLister interface {
	ListDetails(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, error)
}

type patientLister interface {
	ListAll(ctx context.Context) ([]models.Patient, error)
	ListSchedules(ctx context.Context, patientID int64) ([]models.SessionSchedule, error)
}

type batchGenerator interface {
	GenerateForPatient(ctx context.Context, patient *models.Patient, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error)
}

// PatternSource decides which weekly patterns a renewal batch is generated
// from. The default prefers the patient's stored patterns and falls back to
// inferring them from session history.
type PatternSource interface {
	Patterns(patient *models.Patient, history []models.SessionDetail) []models.SessionSchedule
}

// StoredPatternSource uses only explicitly stored patterns.
type StoredPatternSource struct{}

func (StoredPatternSource) Patterns(patient *models.Patient, _ []models.SessionDetail) []models.SessionSchedule {
	return patient.Schedules
}

// InferredPatternSource derives patterns from the patient's most recent
// non-cancelled sessions: one pattern per distinct weekday and wall-clock
// time, most recent occurrence wins, payment status reset to pending.
type InferredPatternSource struct {
	Params scheduling.Params
}

func (src InferredPatternSource) Patterns(patient *models.Patient, history []models.SessionDetail) []models.SessionSchedule {
	recent := make([]models.SessionDetail, 0, len(history))
	for _, detail := range history {
		if !detail.IsCancelled() {
			recent = append(recent, detail)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].ScheduledAt.After(recent[j].ScheduledAt)
	})

	type slotKey struct{ weekday, hour, minute int }
	seen := make(map[slotKey]struct{})
	patterns := make([]models.SessionSchedule, 0)
	for _, detail := range recent {
		weekday, hour, minute := src.Params.WallClock(detail.ScheduledAt)
		key := slotKey{weekday, hour, minute}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		patterns = append(patterns, models.SessionSchedule{
			PatientID:       patient.ID,
			Weekday:         weekday,
			Hour:            hour,
			Minute:          minute,
			PaymentStatus:   models.PaymentStatusPending,
			Category:        detail.Category,
			DurationMinutes: detail.DurationMinutes,
			Price:           detail.Price,
		})
	}
	return patterns
}

// DefaultPatternSource is the stored-else-inferred strategy.
type DefaultPatternSource struct {
	Inferred InferredPatternSource
}

func (src DefaultPatternSource) Patterns(patient *models.Patient, history []models.SessionDetail) []models.SessionSchedule {
	if len(patient.Schedules) > 0 {
		return patient.Schedules
	}
	return src.Inferred.Patterns(patient, history)
}

// RenewalResult reports the outcome of one patient's renewal attempt.
type RenewalResult struct {
	PatientID       int64  `json:"patient_id"`
	PatientName     string `json:"patient_name"`
	SessionsCreated int    `json:"sessions_created"`
	Error           string `json:"error,omitempty"`
}

// RenewalService scans the full timeline and regenerates schedules for
// auto-renew patients whose booked future sessions have run out. One
// patient's failure never aborts the scan.
type RenewalService struct {
	sessions     sessionLister
	patients     patientLister
	generator    batchGenerator
	source       PatternSource
	logger       *zap.Logger
	horizonWeeks int

	mu      sync.Mutex
	lastRun time.Time
	every   time.Duration
}

func NewRenewalService(
	sessions sessionLister,
	patients patientLister,
	generator batchGenerator,
	params scheduling.Params,
	logger *zap.Logger,
	horizonWeeks int,
	sweepEvery time.Duration,
) *RenewalService {
	return &RenewalService{
		sessions:     sessions,
		patients:     patients,
		generator:    generator,
		source:       DefaultPatternSource{Inferred: InferredPatternSource{Params: params}},
		logger:       logger,
		horizonWeeks: horizonWeeks,
		every:        sweepEvery,
	}
}

// RunRenewals performs one full scan.
func (s *RenewalService) RunRenewals(ctx context.Context) ([]RenewalResult, error) {
	details, err := s.sessions.ListDetails(ctx, repository.SessionListFilter{})
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byPatient := make(map[int64][]models.SessionDetail)
	for _, detail := range details {
		byPatient[detail.PatientID] = append(byPatient[detail.PatientID], detail)
	}

	now := time.Now().UTC()
	results := make([]RenewalResult, 0)
	for i := range patients {
		patient := patients[i]
		if !patient.AutoRenew || !patient.Active || patient.Frequency.IntervalWeeks() == 0 {
			continue
		}
		history := byPatient[patient.ID]
		if !needsRenewal(history, now) {
			continue
		}

		result := RenewalResult{PatientID: patient.ID, PatientName: patient.Name}
		schedules, err := s.patients.ListSchedules(ctx, patient.ID)
		if err != nil {
			s.logger.Warn("renewal: stored schedules unavailable",
				zap.Int64("patient_id", patient.ID),
				zap.Error(err),
			)
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		patient.Schedules = schedules

		patterns := s.source.Patterns(&patient, history)
		if len(patterns) == 0 {
			continue
		}

		created, err := s.generator.GenerateForPatient(ctx, &patient, patterns, s.horizonWeeks)
		if err != nil {
			s.logger.Warn("renewal failed for patient",
				zap.Int64("patient_id", patient.ID),
				zap.Error(err),
			)
			result.Error = err.Error()
		} else {
			result.SessionsCreated = len(created)
			s.logger.Info("schedule renewed",
				zap.Int64("patient_id", patient.ID),
				zap.Int("sessions", len(created)),
			)
		}
		results = append(results, result)
	}
	return results, nil
}

// MaybeRun runs a scan unless one completed recently. List fetches call it
// opportunistically; the throttle keeps them cheap.
func (s *RenewalService) MaybeRun(ctx context.Context) {
	s.mu.Lock()
	if s.every > 0 && time.Since(s.lastRun) < s.every {
		s.mu.Unlock()
		return
	}
	s.lastRun = time.Now()
	s.mu.Unlock()

	if _, err := s.RunRenewals(ctx); err != nil {
		s.logger.Error("renewal scan failed", zap.Error(err))
	}
}

// needsRenewal is true when the patient has history but nothing
// non-cancelled left in the future.
func needsRenewal(history []models.SessionDetail, now time.Time) bool {
	if len(history) == 0 {
		return false
	}
	for _, detail := range history {
		if !detail.IsCancelled() && detail.ScheduledAt.After(now) {
			return false
		}
	}
	return true
}
