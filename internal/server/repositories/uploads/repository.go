// Package uploads persists upload records and answers the prefix-max query
// used by the sequential ID allocator.
package uploads

import (
	"context"
	"time"

	"github.com/arkhipovds/studiodesk/internal/server/models"
)

type Repository interface {
	// Create inserts a new upload record. A duplicate upload_id yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, upload *models.Upload) error

	// GetByID returns the record for uploadID, or common.ErrorNotFound.
	GetByID(ctx context.Context, uploadID string) (*models.Upload, error)

	// Save persists the mutable fields of an existing record.
	Save(ctx context.Context, upload *models.Upload) error

	// MaxUploadIDByPrefix returns the lexicographically greatest upload_id
	// starting with prefix, or "" when none exists.
	MaxUploadIDByPrefix(ctx context.Context, prefix string) (string, error)

	// ListActiveBySourceBefore returns records of the given source that are
	// not soft-deleted and were created before cutoff.
	ListActiveBySourceBefore(ctx context.Context, source models.SourceType, cutoff time.Time) ([]*models.Upload, error)

	// ListAll returns every upload record, newest first.
	ListAll(ctx context.Context) ([]*models.Upload, error)
}
