package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
)

type SessionListFilter struct {
	PatientID int64
	Status    string
	Timeframe string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionDetailColumns = `
	s.id, s.patient_id, s.group_id, s.scheduled_at, s.duration_min, s.category,
	s.price, s.payment_status, s.notes, s.created_at, s.updated_at, p.name
`

func scanSessionDetail(row interface{ Scan(dest ...any) error }) (*models.SessionDetail, error) {
	var detail models.SessionDetail
	err := row.Scan(
		&detail.ID,
		&detail.PatientID,
		&detail.GroupID,
		&detail.ScheduledAt,
		&detail.DurationMinutes,
		&detail.Category,
		&detail.Price,
		&detail.PaymentStatus,
		&detail.Notes,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.PatientName,
	)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListDetails returns the full timeline, each session joined with its
// patient's display name, ordered chronologically. The filter narrows by
// patient, status or timeframe when set.
func (r *SessionRepository) ListDetails(ctx context.Context, filter SessionListFilter) ([]models.SessionDetail, error) {
	args := []any{}
	whereParts := []string{"TRUE"}

	if filter.PatientID > 0 {
		args = append(args, filter.PatientID)
		whereParts = append(whereParts, fmt.Sprintf("s.patient_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("s.payment_status = $%d", len(args)))
	}
	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "(s.scheduled_at + (s.duration_min * INTERVAL '1 minute')) > NOW()")
	case "past":
		whereParts = append(whereParts, "(s.scheduled_at + (s.duration_min * INTERVAL '1 minute')) <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE %s
		ORDER BY s.scheduled_at ASC, s.id ASC
	`, sessionDetailColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.SessionDetail, 0)
	for rows.Next() {
		detail, err := scanSessionDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListDetailsExcludingPatient returns every session except the given
// patient's own, for validating a regenerated batch against the rest of
// the timeline.
func (r *SessionRepository) ListDetailsExcludingPatient(ctx context.Context, patientID int64) ([]models.SessionDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.patient_id <> $1
		ORDER BY s.scheduled_at ASC, s.id ASC
	`, sessionDetailColumns)

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.SessionDetail, 0)
	for rows.Next() {
		detail, err := scanSessionDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *SessionRepository) GetDetailByID(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.id = $1
	`, sessionDetailColumns)
	return scanSessionDetail(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) ListByIDs(ctx context.Context, sessionIDs []int64) ([]models.SessionDetail, error) {
	if len(sessionIDs) == 0 {
		return []models.SessionDetail{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.id = ANY($1)
		ORDER BY s.scheduled_at ASC, s.id ASC
	`, sessionDetailColumns)

	rows, err := r.db.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.SessionDetail, 0, len(sessionIDs))
	for rows.Next() {
		detail, err := scanSessionDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (patient_id, group_id, scheduled_at, duration_min, category, price, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	created := *session
	err := r.db.QueryRow(
		ctx,
		query,
		session.PatientID,
		session.GroupID,
		session.ScheduledAt,
		session.DurationMinutes,
		session.Category,
		session.Price,
		session.PaymentStatus,
		session.Notes,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateBatch inserts every session of a generated batch. Run it inside a
// transaction: the batch is all-or-nothing.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []models.Session) ([]models.Session, error) {
	created := make([]models.Session, 0, len(sessions))
	for i := range sessions {
		session, err := r.Create(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		created = append(created, *session)
	}
	return created, nil
}

func (r *SessionRepository) UpdateSchedule(ctx context.Context, sessionID int64, scheduledAt time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET scheduled_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, patient_id, group_id, scheduled_at, duration_min, category, price, payment_status, notes, created_at, updated_at
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID, scheduledAt))
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, sessionID int64, status models.PaymentStatus) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, patient_id, group_id, scheduled_at, duration_min, category, price, payment_status, notes, created_at, updated_at
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID, status))
}

func (r *SessionRepository) ClearPrice(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET price = NULL, updated_at = NOW() WHERE id = $1`, sessionID)
	return err
}

func (r *SessionRepository) UpdateNotes(ctx context.Context, sessionID int64, notes *string) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET notes = $2, updated_at = NOW() WHERE id = $1`, sessionID, notes)
	return err
}

// DeleteFutureUnpaidByPatient removes the patient's future sessions that
// are not yet paid, ahead of regenerating their schedule.
func (r *SessionRepository) DeleteFutureUnpaidByPatient(ctx context.Context, patientID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE patient_id = $1
		  AND scheduled_at > NOW()
		  AND payment_status <> 'paid'
	`, patientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.PatientID,
		&session.GroupID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Category,
		&session.Price,
		&session.PaymentStatus,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
