package repository

import (
	"context"
	"time"

	"github.com/adelarp/PraxisBack/internal/models"
)

type CreateFinancialRecordInput struct {
	SessionID       int64
	PatientID       int64
	Amount          float64
	TransactionDate time.Time
}

type FinancialRecordRepository struct {
	db DBTX
}

func NewFinancialRecordRepository(db DBTX) *FinancialRecordRepository {
	return &FinancialRecordRepository{db: db}
}

func (r *FinancialRecordRepository) Create(ctx context.Context, input CreateFinancialRecordInput) (*models.FinancialRecord, error) {
	query := `
		INSERT INTO financial_records (session_id, patient_id, amount, transaction_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, patient_id, amount, transaction_date, created_at
	`
	var record models.FinancialRecord
	err := r.db.QueryRow(ctx, query, input.SessionID, input.PatientID, input.Amount, input.TransactionDate).Scan(
		&record.ID,
		&record.SessionID,
		&record.PatientID,
		&record.Amount,
		&record.TransactionDate,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *FinancialRecordRepository) GetBySessionID(ctx context.Context, sessionID int64) (*models.FinancialRecord, error) {
	query := `
		SELECT id, session_id, patient_id, amount, transaction_date, created_at
		FROM financial_records
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var record models.FinancialRecord
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&record.ID,
		&record.SessionID,
		&record.PatientID,
		&record.Amount,
		&record.TransactionDate,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *FinancialRecordRepository) DeleteBySessionID(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM financial_records WHERE session_id = $1`, sessionID)
	return err
}

// UpdateTransactionDateBySessionID keeps a paid session's record in step
// with the session after a reschedule.
func (r *FinancialRecordRepository) UpdateTransactionDateBySessionID(ctx context.Context, sessionID int64, date time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE financial_records
		SET transaction_date = $2
		WHERE session_id = $1
	`, sessionID, date)
	return err
}
