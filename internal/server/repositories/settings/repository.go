// Package settings persists runtime key/value configuration and the audit
// trail of changes to it.
package settings

import (
	"context"

	"github.com/arkhipovds/studiodesk/internal/server/models"
)

type Repository interface {
	// Get returns the value stored under key, or common.ErrorNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts key to value.
	Set(ctx context.Context, key, value string) error

	// AppendAudit records a configuration change.
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}
