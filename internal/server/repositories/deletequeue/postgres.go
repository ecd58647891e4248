package deletequeue

import (
	"context"
	"fmt"
	"time"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
)

// PostgresRepository implements queue storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, uploadID string, softDeleteTime time.Time) error {
	query := `INSERT INTO file_delete_queue (upload_id, soft_delete_time) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, uploadID, softDeleteTime)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ExistsByUploadID(ctx context.Context, uploadID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM file_delete_queue WHERE upload_id=$1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, uploadID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check queue entry: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.DeleteQueueEntry, error) {
	query := `
		SELECT id, upload_id, soft_delete_time, created_at
		FROM file_delete_queue
		WHERE soft_delete_time < $1
		ORDER BY soft_delete_time
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []*models.DeleteQueueEntry
	for rows.Next() {
		var item models.DeleteQueueEntry
		if err := rows.Scan(&item.ID, &item.UploadID, &item.SoftDeleteTime, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteByUploadID(ctx context.Context, uploadID string) error {
	query := `DELETE FROM file_delete_queue WHERE upload_id=$1`
	if _, err := r.db.ExecContext(ctx, query, uploadID); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}
