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

// PostgresPhotoOrders implements PhotoOrderRepository over a dbx.DBTX.
type PostgresPhotoOrders struct {
	db dbx.DBTX
}

func NewPostgresPhotoOrders(db dbx.DBTX) *PostgresPhotoOrders {
	return &PostgresPhotoOrders{db: db}
}

func (r *PostgresPhotoOrders) Create(ctx context.Context, t *models.PhotoOrder) error {
	query := `
		INSERT INTO photo_orders (customer_id, upload_id, items_json, due_amount, status, status_history_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	err := r.db.QueryRowContext(ctx, query,
		t.CustomerID, t.UploadID, t.ItemsJSON, t.DueAmount, t.Status, t.StatusHistoryJSON).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert photo order: %w", err)
	}
	return nil
}

func (r *PostgresPhotoOrders) GetByID(ctx context.Context, id int64) (*models.PhotoOrder, error) {
	query := `
		SELECT id, customer_id, upload_id, items_json, due_amount, status, status_history_json, created_at, updated_at
		FROM photo_orders WHERE id=$1
	`
	var item models.PhotoOrder
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.CustomerID, &item.UploadID, &item.ItemsJSON, &item.DueAmount,
		&item.Status, &item.StatusHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select photo order: %w", err)
	}
	return &item, nil
}

func (r *PostgresPhotoOrders) Save(ctx context.Context, t *models.PhotoOrder) error {
	query := `
		UPDATE photo_orders SET customer_id=$2, upload_id=$3, items_json=$4, due_amount=$5,
			status=$6, status_history_json=$7, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.CustomerID, t.UploadID, t.ItemsJSON, t.DueAmount, t.Status, t.StatusHistoryJSON)
	if err != nil {
		return fmt.Errorf("failed to update photo order: %w", err)
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
