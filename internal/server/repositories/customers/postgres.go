package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
)

// PostgresRepository implements customer storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, name, mobile, edit_history_json)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.Name, customer.Mobile, customer.EditHistoryJSON)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `
		SELECT id, name, mobile, edit_history_json, created_at, updated_at
		FROM customers WHERE id=$1
	`
	var item models.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.Mobile, &item.EditHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select customer: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM customers WHERE id=$1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check customer: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) MaxIDInRange(ctx context.Context, lo, hi int64) (int64, error) {
	query := `SELECT MAX(id) FROM customers WHERE id BETWEEN $1 AND $2`

	var maxID sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, lo, hi).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to select max customer id: %w", err)
	}
	return maxID.Int64, nil
}

func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	query := `
		SELECT id, name, mobile, edit_history_json, created_at, updated_at
		FROM customers WHERE mobile=$1
	`
	var item models.Customer
	err := r.db.QueryRowContext(ctx, query, mobile).Scan(
		&item.ID, &item.Name, &item.Mobile, &item.EditHistoryJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select customer by mobile: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) SearchByMobile(ctx context.Context, fragment string) ([]*models.Customer, error) {
	query := `
		SELECT id, name, mobile, edit_history_json, created_at, updated_at
		FROM customers WHERE mobile LIKE '%' || $1 || '%'
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	var result []*models.Customer
	for rows.Next() {
		var item models.Customer
		if err := rows.Scan(&item.ID, &item.Name, &item.Mobile, &item.EditHistoryJSON,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Save(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers SET name=$2, mobile=$3, edit_history_json=$4, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.Name, customer.Mobile, customer.EditHistoryJSON)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
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
