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

// PostgresServiceOrders implements ServiceOrderRepository over a dbx.DBTX.
type PostgresServiceOrders struct {
	db dbx.DBTX
}

func NewPostgresServiceOrders(db dbx.DBTX) *PostgresServiceOrders {
	return &PostgresServiceOrders{db: db}
}

func (r *PostgresServiceOrders) Create(ctx context.Context, t *models.ServiceOrder) error {
	query := `
		INSERT INTO service_orders (customer_id, upload_id, service_name, amount, status, status_history_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	err := r.db.QueryRowContext(ctx, query,
		t.CustomerID, t.UploadID, t.ServiceName, t.Amount, t.Status, t.StatusHistoryJSON).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert service order: %w", err)
	}
	return nil
}

func (r *PostgresServiceOrders) GetByID(ctx context.Context, id int64) (*models.ServiceOrder, error) {
	query := `
		SELECT id, customer_id, upload_id, service_name, amount, status, status_history_json, created_at, updated_at
		FROM service_orders WHERE id=$1
	`
	var item models.ServiceOrder
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.CustomerID, &item.UploadID, &item.ServiceName, &item.Amount,
		&item.Status, &item.StatusHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select service order: %w", err)
	}
	return &item, nil
}

func (r *PostgresServiceOrders) Save(ctx context.Context, t *models.ServiceOrder) error {
	query := `
		UPDATE service_orders SET customer_id=$2, upload_id=$3, service_name=$4, amount=$5,
			status=$6, status_history_json=$7, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.CustomerID, t.UploadID, t.ServiceName, t.Amount, t.Status, t.StatusHistoryJSON)
	if err != nil {
		return fmt.Errorf("failed to update service order: %w", err)
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
