package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/logging"
	"github.com/arkhipovds/studiodesk/internal/server/blob"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// Setting keys consumed from the runtime settings store.
const (
	SettingStoragePath = "STORAGE_PATH"
)

const (
	maxAllocationAttempts = 5
	allocationRetryDelay  = 50 * time.Millisecond
)

// UploadMeta carries the validated request metadata for a new upload.
type UploadMeta struct {
	OriginalFilename string
	// Source is the display name of the originating flow, e.g. "Bill Payment".
	Source string
}

// UploadService allocates upload identities and persists upload records.
// IDs have the form F<YYMMDD><NNN> with a 3-digit sequence that resets
// daily; uniqueness under concurrent writers is enforced by the store's
// primary key, with bounded retry on collision.
type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	clock       timex.Clock
	logger      logging.Logger

	// sleep is a seam so tests do not wait out the retry backoff.
	sleep func(d time.Duration)
}

// NewUploadService constructs an UploadService.
func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, clock timex.Clock, logger logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		clock:       clock,
		logger:      logger.With("component", "uploads"),
		sleep:       time.Sleep,
	}
}

// normalizeUploadID strips a trailing extension so "F251230005.jpg"
// resolves the record keyed "F251230005".
func normalizeUploadID(id string) string {
	if ext := path.Ext(id); ext != "" {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

// storageRoot reads the configured storage directory, failing fast when it
// is absent or blank.
func (s *UploadService) storageRoot(ctx context.Context) (string, error) {
	root, err := s.repomanager.Settings(s.db).Get(ctx, SettingStoragePath)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error reading storage path: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return "", common.ErrStorageNotConfigured
	}
	return root, nil
}

// nextUploadID computes the candidate ID for today: the stored maximum for
// the date prefix plus one. An unparsable maximum falls back to sequence 1.
func (s *UploadService) nextUploadID(ctx context.Context) (string, error) {
	prefix := "F" + s.clock.Now().Format(common.UploadIDDateLayout)

	maxID, err := s.repomanager.Uploads(s.db).MaxUploadIDByPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("error selecting max upload id: %w", err)
	}

	seq := 0
	if len(maxID) >= 3 {
		if n, err := strconv.Atoi(maxID[len(maxID)-3:]); err == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}

// AllocateUpload reserves a fresh upload ID, persists the record, and then
// writes the payload under the chosen path.
//
// The identity record is inserted before the physical write so a write
// failure cannot orphan an ID; an orphaned physical file from a retried
// attempt is acceptable garbage. Collisions with a concurrent allocator are
// retried with a short backoff up to maxAllocationAttempts, after which
// common.ErrAllocationExhausted is returned.
func (s *UploadService) AllocateUpload(ctx context.Context, meta UploadMeta, payload []byte) (*models.Upload, error) {
	root, err := s.storageRoot(ctx)
	if err != nil {
		return nil, err
	}

	ext := path.Ext(meta.OriginalFilename)
	repo := s.repomanager.Uploads(s.db)

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		// Recompute on every attempt: a lost race means the max moved.
		uploadID, err := s.nextUploadID(ctx)
		if err != nil {
			return nil, err
		}

		upload := &models.Upload{
			UploadID:         uploadID,
			UploadPath:       filepath.Join(root, uploadID+ext),
			Extension:        ext,
			OriginalFilename: meta.OriginalFilename,
			UploadedFrom:     models.SourceTypeFromString(meta.Source),
			IsAvailable:      true,
		}

		err = repo.Create(ctx, upload)
		if errors.Is(err, common.ErrAlreadyExists) {
			s.logger.Warn(ctx, "duplicate upload id, retrying",
				"upload_id", uploadID, "attempt", attempt)
			s.sleep(allocationRetryDelay)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error inserting upload record: %w", err)
		}

		if err := s.blobs.Write(ctx, upload.UploadPath, payload); err != nil {
			return nil, fmt.Errorf("error writing upload payload: %w", err)
		}
		return upload, nil
	}

	return nil, common.ErrAllocationExhausted
}

// Lookup returns the upload record for an ID that may carry an extension.
func (s *UploadService) Lookup(ctx context.Context, id string) (*models.Upload, error) {
	return s.repomanager.Uploads(s.db).GetByID(ctx, normalizeUploadID(id))
}

// LinkCustomer attaches an upload to a customer.
func (s *UploadService) LinkCustomer(ctx context.Context, uploadID string, customerID int64) error {
	upload, err := s.repomanager.Uploads(s.db).GetByID(ctx, normalizeUploadID(uploadID))
	if err != nil {
		return err
	}

	exists, err := s.repomanager.Customers(s.db).ExistsByID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("error checking customer: %w", err)
	}
	if !exists {
		return common.ErrorNotFound
	}

	upload.LinkedCustomerID = sql.NullInt64{Int64: customerID, Valid: true}
	return s.repomanager.Uploads(s.db).Save(ctx, upload)
}

// AvailabilityReport summarizes a CheckAvailability sweep.
type AvailabilityReport struct {
	Available int
	Missing   int
	Total     int
}

// CheckAvailability probes the blob store for every upload and persists the
// observed presence flag. A record already marked unavailable is assumed
// lost for good and is not re-probed.
func (s *UploadService) CheckAvailability(ctx context.Context) (*AvailabilityReport, error) {
	repo := s.repomanager.Uploads(s.db)

	items, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing uploads: %w", err)
	}

	report := &AvailabilityReport{Total: len(items)}
	for _, upload := range items {
		if !upload.IsAvailable {
			report.Missing++
			continue
		}

		exists, err := s.blobs.Exists(ctx, upload.UploadPath)
		if err != nil {
			s.logger.Error(ctx, "availability probe failed",
				"upload_id", upload.UploadID, "error", err.Error())
			exists = false
		}

		upload.IsAvailable = exists
		if exists {
			report.Available++
		} else {
			report.Missing++
		}

		if err := repo.Save(ctx, upload); err != nil {
			return nil, fmt.Errorf("error saving upload %s: %w", upload.UploadID, err)
		}
	}
	return report, nil
}
