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

// PostgresMoneyTransfers implements MoneyTransferRepository over a dbx.DBTX.
type PostgresMoneyTransfers struct {
	db dbx.DBTX
}

func NewPostgresMoneyTransfers(db dbx.DBTX) *PostgresMoneyTransfers {
	return &PostgresMoneyTransfers{db: db}
}

func (r *PostgresMoneyTransfers) Create(ctx context.Context, t *models.MoneyTransfer) error {
	query := `
		INSERT INTO money_transfers (customer_id, upload_id, recipient, amount, status, status_history_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	err := r.db.QueryRowContext(ctx, query,
		t.CustomerID, t.UploadID, t.Recipient, t.Amount, t.Status, t.StatusHistoryJSON).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert money transfer: %w", err)
	}
	return nil
}

func (r *PostgresMoneyTransfers) GetByID(ctx context.Context, id int64) (*models.MoneyTransfer, error) {
	query := `
		SELECT id, customer_id, upload_id, recipient, amount, status, status_history_json, created_at, updated_at
		FROM money_transfers WHERE id=$1
	`
	var item models.MoneyTransfer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.CustomerID, &item.UploadID, &item.Recipient, &item.Amount,
		&item.Status, &item.StatusHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select money transfer: %w", err)
	}
	return &item, nil
}

func (r *PostgresMoneyTransfers) Save(ctx context.Context, t *models.MoneyTransfer) error {
	query := `
		UPDATE money_transfers SET customer_id=$2, upload_id=$3, recipient=$4, amount=$5,
			status=$6, status_history_json=$7, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.CustomerID, t.UploadID, t.Recipient, t.Amount, t.Status, t.StatusHistoryJSON)
	if err != nil {
		return fmt.Errorf("failed to update money transfer: %w", err)
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
