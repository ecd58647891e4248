package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// SettingsService exposes the runtime key/value configuration store and
// records every value change in the audit log.
type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock) *SettingsService {
	return &SettingsService{db: db, repomanager: m, clock: clock}
}

// Get returns the value stored under key, or common.ErrorNotFound.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	return s.repomanager.Settings(s.db).Get(ctx, key)
}

// Set upserts key to value. An audit row is written only when the stored
// value actually changed.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Settings(tx)

		old, err := repo.Get(ctx, key)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error reading setting %s: %w", key, err)
		}
		if old == value {
			return nil
		}

		if err := repo.Set(ctx, key, value); err != nil {
			return fmt.Errorf("error writing setting %s: %w", key, err)
		}

		return repo.AppendAudit(ctx, &models.AuditLog{
			ID:         uuid.NewString(),
			EntityName: "setting",
			EntityID:   key,
			Action:     "update",
			FieldName:  "value",
			OldValue:   old,
			NewValue:   value,
			CreatedAt:  s.clock.Now(),
		})
	})
}
