package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
	"github.com/adelarp/PraxisBack/internal/repository"
	"github.com/adelarp/PraxisBack/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPatientNotFound        = errors.New("patient not found")
)

// scheduleLockKey serializes writes to the practice timeline, so a conflict
// check and the insert it guards run against the same snapshot.
const scheduleLockKey = 815001

type sessionStore interface {
	ListDetails(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, error)
	GetDetailByID(ctx context.Context, sessionID int64) (*models.SessionDetail, error)
	ListByIDs(ctx context.Context, sessionIDs []int64) ([]models.SessionDetail, error)
	UpdateSchedule(ctx context.Context, sessionID int64, scheduledAt time.Time) (*models.Session, error)
	UpdateStatus(ctx context.Context, sessionID int64, status models.PaymentStatus) (*models.Session, error)
	ClearPrice(ctx context.Context, sessionID int64) error
	UpdateNotes(ctx context.Context, sessionID int64, notes *string) error
	Delete(ctx context.Context, sessionID int64) error
}

type financeStore interface {
	Create(ctx context.Context, input repository.CreateFinancialRecordInput) (*models.FinancialRecord, error)
	GetBySessionID(ctx context.Context, sessionID int64) (*models.FinancialRecord, error)
	DeleteBySessionID(ctx context.Context, sessionID int64) error
	UpdateTransactionDateBySessionID(ctx context.Context, sessionID int64, date time.Time) error
}

type patientReader interface {
	GetByID(ctx context.Context, patientID int64) (*models.Patient, error)
	ListSchedules(ctx context.Context, patientID int64) ([]models.SessionSchedule, error)
}

type scheduleNotifier interface {
	NotifySessionEvent(eventType string, session *models.Session)
}

type SessionService struct {
	db          *pgxpool.Pool
	sessionRepo sessionStore
	financeRepo financeStore
	patientRepo patientReader
	params      scheduling.Params
	logger      *zap.Logger
	events      scheduleNotifier
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo sessionStore,
	financeRepo financeStore,
	patientRepo patientReader,
	params scheduling.Params,
	logger *zap.Logger,
	events scheduleNotifier,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		financeRepo: financeRepo,
		patientRepo: patientRepo,
		params:      params,
		logger:      logger,
		events:      events,
	}
}

type BookSessionInput struct {
	PatientID       int64
	ScheduledAt     time.Time
	DurationMinutes int
	Category        string
	Price           *float64
	Notes           *string
}

// BookSession places a single session on the timeline. The conflict check
// and the insert run inside one transaction under an advisory lock, so a
// racing booking cannot slip between the snapshot and the write.
func (s *SessionService) BookSession(ctx context.Context, input BookSessionInput) (*models.SessionDetail, error) {
	if input.PatientID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	patient, err := s.patientRepo.GetByID(ctx, input.PatientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if !patient.Active {
		return nil, ErrInvalidInput
	}

	duration := time.Duration(input.DurationMinutes) * time.Minute
	if input.DurationMinutes <= 0 {
		duration = s.params.DefaultDuration
	}
	price := input.Price
	if price == nil {
		price = patient.DefaultPrice
	}
	category := input.Category
	if category == "" {
		category = scheduling.DefaultCategory
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

	txSessionRepo := repository.NewSessionRepository(tx)
	existing, err := txSessionRepo.ListDetails(ctx, repository.SessionListFilter{})
	if err != nil {
		return nil, err
	}
	start := input.ScheduledAt.UTC()
	if conflict := s.params.FindConflict(existing, start, duration, 0); conflict != nil {
		return nil, &scheduling.ConflictError{
			PatientName:    conflict.PatientName,
			SuggestedStart: s.params.NextFreeSlot(existing, start, duration, 0),
		}
	}

	session, err := txSessionRepo.Create(ctx, &models.Session{
		PatientID:       patient.ID,
		ScheduledAt:     start,
		DurationMinutes: int(duration / time.Minute),
		Category:        category,
		Price:           price,
		PaymentStatus:   models.PaymentStatusPending,
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notify("session.created", session)
	return &models.SessionDetail{Session: *session, PatientName: patient.Name}, nil
}

// ListSessions returns the timeline with patient names and, when the
// filter is empty, the full snapshot the auto-renewal scan feeds on.
func (s *SessionService) ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, error) {
	return s.sessionRepo.ListDetails(ctx, filter)
}

func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}
	detail, err := s.sessionRepo.GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	record, err := s.financeRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Record = record
	}
	return detail, nil
}

// Reschedule moves one session to a new start after checking the move
// against every other non-cancelled session. When the session is already
// paid, the linked financial record's date follows the move; a failure
// there is logged and does not roll the move back.
func (s *SessionService) Reschedule(ctx context.Context, sessionID int64, newStart time.Time) (*models.SessionDetail, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}
	detail, err := s.sessionRepo.GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if detail.IsCancelled() {
		return nil, ErrInvalidStateTransition
	}

	existing, err := s.sessionRepo.ListDetails(ctx, repository.SessionListFilter{})
	if err != nil {
		return nil, err
	}
	start := newStart.UTC()
	duration := time.Duration(detail.DurationMinutes) * time.Minute
	if conflict := s.params.FindConflict(existing, start, duration, sessionID); conflict != nil {
		return nil, &scheduling.ConflictError{
			PatientName:    conflict.PatientName,
			SuggestedStart: s.params.NextFreeSlot(existing, start, duration, sessionID),
		}
	}

	updated, err := s.sessionRepo.UpdateSchedule(ctx, sessionID, start)
	if err != nil {
		return nil, err
	}

	if detail.PaymentStatus == models.PaymentStatusPaid {
		if err := s.financeRepo.UpdateTransactionDateBySessionID(ctx, sessionID, start); err != nil {
			s.logger.Warn("financial record date not updated after reschedule",
				zap.Int64("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	s.notify("session.rescheduled", updated)
	return &models.SessionDetail{Session: *updated, PatientName: detail.PatientName}, nil
}

// Cancel marks a session cancelled. A session still in the future also
// loses its price and its financial record; past sessions keep both.
func (s *SessionService) Cancel(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}
	detail, err := s.sessionRepo.GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if detail.IsCancelled() {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.sessionRepo.UpdateStatus(ctx, sessionID, models.PaymentStatusCancelled)
	if err != nil {
		return nil, err
	}

	if detail.ScheduledAt.After(time.Now().UTC()) {
		if err := s.sessionRepo.ClearPrice(ctx, sessionID); err != nil {
			return nil, err
		}
		updated.Price = nil
		if err := s.financeRepo.DeleteBySessionID(ctx, sessionID); err != nil {
			s.logger.Warn("financial record not removed after cancellation",
				zap.Int64("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	s.notify("session.cancelled", updated)
	return &models.SessionDetail{Session: *updated, PatientName: detail.PatientName}, nil
}

// UpdateStatus applies a payment-status change to one session. Moving to
// paid creates the financial record when one does not exist yet; moving to
// cancelled behaves exactly like Cancel.
func (s *SessionService) UpdateStatus(ctx context.Context, sessionID int64, requestedStatus string) (*models.SessionDetail, error) {
	status, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if status == models.PaymentStatusCancelled {
		return s.Cancel(ctx, sessionID)
	}

	detail, err := s.sessionRepo.GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if detail.IsCancelled() {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.sessionRepo.UpdateStatus(ctx, sessionID, status)
	if err != nil {
		return nil, err
	}

	if status == models.PaymentStatusPaid {
		s.ensureFinancialRecord(ctx, detail)
	}

	s.notify("session.updated", updated)
	return &models.SessionDetail{Session: *updated, PatientName: detail.PatientName}, nil
}

// BulkUpdateStatus applies one payment status to a set of sessions. The
// cancelled branch clears prices and removes financial records only for
// the subset still in the future.
func (s *SessionService) BulkUpdateStatus(ctx context.Context, sessionIDs []int64, requestedStatus string) ([]models.SessionDetail, error) {
	if len(sessionIDs) == 0 {
		return nil, ErrInvalidInput
	}
	status, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	details, err := s.sessionRepo.ListByIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	if len(details) != len(sessionIDs) {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	for i := range details {
		detail := &details[i]
		if detail.PaymentStatus == status {
			continue
		}
		updated, err := s.sessionRepo.UpdateStatus(ctx, detail.ID, status)
		if err != nil {
			return nil, err
		}
		switch status {
		case models.PaymentStatusCancelled:
			if detail.ScheduledAt.After(now) {
				if err := s.sessionRepo.ClearPrice(ctx, detail.ID); err != nil {
					return nil, err
				}
				updated.Price = nil
				if err := s.financeRepo.DeleteBySessionID(ctx, detail.ID); err != nil {
					s.logger.Warn("financial record not removed after bulk cancellation",
						zap.Int64("session_id", detail.ID),
						zap.Error(err),
					)
				}
			}
		case models.PaymentStatusPaid:
			s.ensureFinancialRecord(ctx, detail)
		}
		detail.Session = *updated
		s.notify("session.updated", updated)
	}
	return details, nil
}

// UpdateNotes replaces the free-text note on one session.
func (s *SessionService) UpdateNotes(ctx context.Context, sessionID int64, notes *string) (*models.SessionDetail, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidInput
	}
	detail, err := s.sessionRepo.GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateNotes(ctx, sessionID, notes); err != nil {
		return nil, err
	}
	detail.Notes = notes
	return detail, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return ErrInvalidInput
	}
	if _, err := s.sessionRepo.GetDetailByID(ctx, sessionID); err != nil {
		return err
	}
	if err := s.financeRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		s.logger.Warn("financial record not removed before session deletion",
			zap.Int64("session_id", sessionID),
			zap.Error(err),
		)
	}
	return s.sessionRepo.Delete(ctx, sessionID)
}

// ensureFinancialRecord backfills the bookkeeping entry for a session that
// just became paid. Financial writes are best-effort: failures are logged,
// never propagated.
func (s *SessionService) ensureFinancialRecord(ctx context.Context, detail *models.SessionDetail) {
	if detail.Price == nil {
		return
	}
	if _, err := s.financeRepo.GetBySessionID(ctx, detail.ID); err == nil {
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("financial record lookup failed",
			zap.Int64("session_id", detail.ID),
			zap.Error(err),
		)
		return
	}
	_, err := s.financeRepo.Create(ctx, repository.CreateFinancialRecordInput{
		SessionID:       detail.ID,
		PatientID:       detail.PatientID,
		Amount:          *detail.Price,
		TransactionDate: detail.ScheduledAt,
	})
	if err != nil {
		s.logger.Warn("financial record not created for paid session",
			zap.Int64("session_id", detail.ID),
			zap.Error(err),
		)
	}
}

func (s *SessionService) notify(eventType string, session *models.Session) {
	if s.events == nil || session == nil {
		return
	}
	s.events.NotifySessionEvent(eventType, session)
}

func normalizeRequestedStatus(status string) (models.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return models.PaymentStatusPending, nil
	case "paid", "pay":
		return models.PaymentStatusPaid, nil
	case "cancel", "cancelled", "canceled":
		return models.PaymentStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}
