package repository

import (
	"context"

	"github.com/adelarp/PraxisBack/internal/models"
)

type PatientRepository struct {
	db DBTX
}

func NewPatientRepository(db DBTX) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientColumns = `id, name, frequency, default_price, auto_renew, active, created_at, updated_at`

func scanPatient(row interface{ Scan(dest ...any) error }) (*models.Patient, error) {
	var patient models.Patient
	err := row.Scan(
		&patient.ID,
		&patient.Name,
		&patient.Frequency,
		&patient.DefaultPrice,
		&patient.AutoRenew,
		&patient.Active,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	query := `
		INSERT INTO patients (name, frequency, default_price, auto_renew, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + patientColumns
	return scanPatient(r.db.QueryRow(
		ctx,
		query,
		patient.Name,
		patient.Frequency,
		patient.DefaultPrice,
		patient.AutoRenew,
		patient.Active,
	))
}

func (r *PatientRepository) GetByID(ctx context.Context, patientID int64) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return scanPatient(r.db.QueryRow(ctx, query, patientID))
}

func (r *PatientRepository) ListAll(ctx context.Context) ([]models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY name ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]models.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, *patient)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	query := `
		UPDATE patients
		SET name = $2, frequency = $3, default_price = $4, auto_renew = $5, active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + patientColumns
	return scanPatient(r.db.QueryRow(
		ctx,
		query,
		patient.ID,
		patient.Name,
		patient.Frequency,
		patient.DefaultPrice,
		patient.AutoRenew,
		patient.Active,
	))
}

func (r *PatientRepository) ListSchedules(ctx context.Context, patientID int64) ([]models.SessionSchedule, error) {
	query := `
		SELECT id, patient_id, weekday, start_hour, start_minute, payment_status, category, duration_min, price, created_at
		FROM session_schedules
		WHERE patient_id = $1
		ORDER BY weekday ASC, start_hour ASC, start_minute ASC
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]models.SessionSchedule, 0)
	for rows.Next() {
		var sched models.SessionSchedule
		if err := rows.Scan(
			&sched.ID,
			&sched.PatientID,
			&sched.Weekday,
			&sched.Hour,
			&sched.Minute,
			&sched.PaymentStatus,
			&sched.Category,
			&sched.DurationMinutes,
			&sched.Price,
			&sched.CreatedAt,
		); err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

// ReplaceSchedules swaps a patient's stored weekly patterns for a new set.
// Run it inside the same transaction as the session regeneration.
func (r *PatientRepository) ReplaceSchedules(ctx context.Context, patientID int64, schedules []models.SessionSchedule) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM session_schedules WHERE patient_id = $1`, patientID); err != nil {
		return err
	}
	for _, sched := range schedules {
		_, err := r.db.Exec(ctx, `
			INSERT INTO session_schedules (patient_id, weekday, start_hour, start_minute, payment_status, category, duration_min, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			patientID,
			sched.Weekday,
			sched.Hour,
			sched.Minute,
			sched.PaymentStatus,
			sched.Category,
			sched.DurationMinutes,
			sched.Price,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
