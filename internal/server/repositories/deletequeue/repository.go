// Package deletequeue persists the retention queue entries that tie a
// soft-deleted upload to its pending physical deletion.
package deletequeue

import (
	"context"
	"time"

	"github.com/arkhipovds/studiodesk/internal/server/models"
)

type Repository interface {
	// Create enqueues uploadID with the given soft-delete instant.
	// A duplicate upload_id yields common.ErrAlreadyExists.
	Create(ctx context.Context, uploadID string, softDeleteTime time.Time) error

	// ExistsByUploadID reports whether uploadID is already queued.
	ExistsByUploadID(ctx context.Context, uploadID string) (bool, error)

	// ListOlderThan returns entries whose soft-delete time is before cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.DeleteQueueEntry, error)

	// DeleteByUploadID removes the entry for uploadID, if any.
	DeleteByUploadID(ctx context.Context, uploadID string) error
}
