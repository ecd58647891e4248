package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
)

// PostgresBillPayments implements BillPaymentRepository over a dbx.DBTX.
type PostgresBillPayments struct {
	db dbx.DBTX
}

func NewPostgresBillPayments(db dbx.DBTX) *PostgresBillPayments {
	return &PostgresBillPayments{db: db}
}

func (r *PostgresBillPayments) Create(ctx context.Context, t *models.BillPayment) error {
	query := `
		INSERT INTO bill_payments (customer_id, upload_id, biller, amount, status, status_history_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	err := r.db.QueryRowContext(ctx, query,
		t.CustomerID, t.UploadID, t.Biller, t.Amount, t.Status, t.StatusHistoryJSON).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bill payment: %w", err)
	}
	return nil
}

func (r *PostgresBillPayments) GetByID(ctx context.Context, id int64) (*models.BillPayment, error) {
	query := `
		SELECT id, customer_id, upload_id, biller, amount, status, status_history_json, created_at, updated_at
		FROM bill_payments WHERE id=$1
	`
	var item models.BillPayment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.CustomerID, &item.UploadID, &item.Biller, &item.Amount,
		&item.Status, &item.StatusHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select bill payment: %w", err)
	}
	return &item, nil
}

func (r *PostgresBillPayments) Save(ctx context.Context, t *models.BillPayment) error {
	query := `
		UPDATE bill_payments SET customer_id=$2, upload_id=$3, biller=$4, amount=$5,
			status=$6, status_history_json=$7, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.CustomerID, t.UploadID, t.Biller, t.Amount, t.Status, t.StatusHistoryJSON)
	if err != nil {
		return fmt.Errorf("failed to update bill payment: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
