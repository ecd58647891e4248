package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
)

// PostgresRepository implements settings storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key=$1`

	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("failed to select setting: %w", err)
	}
	return value, nil
}

func (r *PostgresRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, entity_name, entity_id, action, field_name, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.EntityName, entry.EntityID, entry.Action, entry.FieldName,
		entry.OldValue, entry.NewValue)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
