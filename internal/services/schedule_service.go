package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/adelarp/PraxisBack/internal/repository"
	"github.com/adelarp/PraxisBack/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ScheduleService owns the generate→validate→persist pipeline for
// recurrence batches. A batch is committed in one transaction: either every
// generated session lands or none does.
type ScheduleService struct {
	db           *pgxpool.Pool
	params       scheduling.Params
	logger       *zap.Logger
	events       scheduleNotifier
	horizonWeeks int
}

func NewScheduleService(
	db *pgxpool.Pool,
	params scheduling.Params,
	logger *zap.Logger,
	events scheduleNotifier,
	horizonWeeks int,
) *ScheduleService {
	return &ScheduleService{
		db:           db,
		params:       params,
		logger:       logger,
		events:       events,
		horizonWeeks: horizonWeeks,
	}
}

// ValidateSchedules rejects malformed patterns before any generation is
// attempted.
func ValidateSchedules(schedules []models.SessionSchedule) error {
	if len(schedules) == 0 {
		return fmt.Errorf("%w: at least one schedule pattern is required", ErrInvalidInput)
	}
	for _, sched := range schedules {
		if sched.Weekday < 0 || sched.Weekday > 6 {
			return fmt.Errorf("%w: weekday must be between 0 and 6", ErrInvalidInput)
		}
		if sched.Hour < 0 || sched.Hour > 23 || sched.Minute < 0 || sched.Minute > 59 {
			return fmt.Errorf("%w: time must be a valid HH:mm", ErrInvalidInput)
		}
		if sched.DurationMinutes < 0 {
			return fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
		}
		if sched.PaymentStatus != "" && !sched.PaymentStatus.Valid() {
			return fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, sched.PaymentStatus)
		}
	}
	return nil
}

// GenerateForPatient expands the given patterns for one patient and commits
// the validated batch. The patient's own sessions are left out of the
// conflict snapshot, so regenerating a schedule never collides with itself.
func (s *ScheduleService) GenerateForPatient(ctx context.Context, patient *models.Patient, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error) {
	if patient == nil || patient.ID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ValidateSchedules(schedules); err != nil {
		return nil, err
	}
	if horizonWeeks <= 0 {
		horizonWeeks = s.horizonWeeks
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", scheduleLockKey); err != nil {
		return nil, err
	}

	created, err := s.generateLocked(ctx, tx, patient, schedules, horizonWeeks)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("schedule batch generated",
		zap.Int64("patient_id", patient.ID),
		zap.Int("sessions", len(created)),
		zap.Int("horizon_weeks", horizonWeeks),
	)
	for i := range created {
		if s.events != nil {
			s.events.NotifySessionEvent("session.created", &created[i])
		}
	}
	return created, nil
}

// ReplaceFutureSessions swaps a patient's stored patterns for a new set,
// drops their future unpaid sessions, and generates a fresh batch — all in
// one transaction. Paid future sessions survive the replacement.
func (s *ScheduleService) ReplaceFutureSessions(ctx context.Context, patientID int64, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error) {
	if patientID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ValidateSchedules(schedules); err != nil {
		return nil, err
	}
	if horizonWeeks <= 0 {
		horizonWeeks = s.horizonWeeks
	}

	patient, err := repository.NewPatientRepository(s.db).GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", scheduleLockKey); err != nil {
		return nil, err
	}

	if err := repository.NewPatientRepository(tx).ReplaceSchedules(ctx, patientID, schedules); err != nil {
		return nil, err
	}
	removed, err := repository.NewSessionRepository(tx).DeleteFutureUnpaidByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	created, err := s.generateLocked(ctx, tx, patient, schedules, horizonWeeks)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("future sessions replaced",
		zap.Int64("patient_id", patientID),
		zap.Int64("removed", removed),
		zap.Int("created", len(created)),
	)
	for i := range created {
		if s.events != nil {
			s.events.NotifySessionEvent("session.created", &created[i])
		}
	}
	return created, nil
}

func (s *ScheduleService) generateLocked(ctx context.Context, tx pgx.Tx, patient *models.Patient, schedules []models.SessionSchedule, horizonWeeks int) ([]models.Session, error) {
	txSessionRepo := repository.NewSessionRepository(tx)
	existing, err := txSessionRepo.ListDetailsExcludingPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}

	plan := s.params.GeneratePlan(patient, schedules, time.Now().UTC(), horizonWeeks)
	validated, err := s.params.ValidateBatch(patient.Name, plan, existing)
	if err != nil {
		return nil, err
	}
	return txSessionRepo.CreateBatch(ctx, validated)
}
