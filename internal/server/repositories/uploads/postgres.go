package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
)

// PostgresRepository implements upload storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, upload *models.Upload) error {
	query := `
		INSERT INTO uploads (upload_id, upload_path, extension, original_filename, uploaded_from,
			is_available, mark_deleted, remarks, linked_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db.ExecContext(ctx, query,
		upload.UploadID, upload.UploadPath, upload.Extension, upload.OriginalFilename,
		string(upload.UploadedFrom), upload.IsAvailable, upload.MarkDeleted, upload.Remarks,
		upload.LinkedCustomerID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, uploadID string) (*models.Upload, error) {
	query := `
		SELECT upload_id, upload_path, extension, original_filename, uploaded_from,
			is_available, mark_deleted, remarks, linked_customer_id, created_at, updated_at
		FROM uploads WHERE upload_id=$1
	`
	item, err := scanUpload(r.db.QueryRowContext(ctx, query, uploadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Save(ctx context.Context, upload *models.Upload) error {
	query := `
		UPDATE uploads SET upload_path=$2, extension=$3, original_filename=$4, uploaded_from=$5,
			is_available=$6, mark_deleted=$7, remarks=$8, linked_customer_id=$9, updated_at=now()
		WHERE upload_id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		upload.UploadID, upload.UploadPath, upload.Extension, upload.OriginalFilename,
		string(upload.UploadedFrom), upload.IsAvailable, upload.MarkDeleted, upload.Remarks,
		upload.LinkedCustomerID)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
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

func (r *PostgresRepository) MaxUploadIDByPrefix(ctx context.Context, prefix string) (string, error) {
	query := `SELECT MAX(upload_id) FROM uploads WHERE upload_id LIKE $1 || '%'`

	var maxID sql.NullString
	if err := r.db.QueryRowContext(ctx, query, prefix).Scan(&maxID); err != nil {
		return "", fmt.Errorf("failed to select max upload id: %w", err)
	}
	return maxID.String, nil
}

func (r *PostgresRepository) ListActiveBySourceBefore(ctx context.Context, source models.SourceType, cutoff time.Time) ([]*models.Upload, error) {
	query := `
		SELECT upload_id, upload_path, extension, original_filename, uploaded_from,
			is_available, mark_deleted, remarks, linked_customer_id, created_at, updated_at
		FROM uploads
		WHERE uploaded_from=$1 AND mark_deleted=FALSE AND created_at < $2
	`
	rows, err := r.db.QueryContext(ctx, query, string(source), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	return collectUploads(rows)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Upload, error) {
	query := `
		SELECT upload_id, upload_path, extension, original_filename, uploaded_from,
			is_available, mark_deleted, remarks, linked_customer_id, created_at, updated_at
		FROM uploads ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	return collectUploads(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.Upload, error) {
	var item models.Upload
	var source string
	err := row.Scan(&item.UploadID, &item.UploadPath, &item.Extension, &item.OriginalFilename,
		&source, &item.IsAvailable, &item.MarkDeleted, &item.Remarks, &item.LinkedCustomerID,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.UploadedFrom = models.SourceType(source)
	return &item, nil
}

func collectUploads(rows *sql.Rows) ([]*models.Upload, error) {
	var result []*models.Upload
	for rows.Next() {
		item, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
