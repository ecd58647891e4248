package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/logging"
	"github.com/arkhipovds/studiodesk/internal/server/blob"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// Setting keys consumed by the scheduler. All three are read on every run,
// so operators can adjust retention without a restart.
const (
	SettingScheduledTime     = "FILE_DELETION_SCHEDULED_TIME"
	SettingReceiptDeleteDays = "BILL_PAYMENT_RECEIPT_DELETE_DURATION_DAYS"
	SettingAbsoluteDays      = "FILE_ABSOLUTE_DELETE_DAYS"
)

const cleanupTickInterval = time.Minute

var (
	cleanupRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiodesk_cleanup_runs_total",
		Help: "Number of completed cleanup sweeps.",
	})
	cleanupSoftDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiodesk_cleanup_soft_deleted_total",
		Help: "Uploads soft-deleted by the scheduler.",
	})
	cleanupHardDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiodesk_cleanup_hard_deleted_total",
		Help: "Uploads physically deleted by the scheduler.",
	})
	cleanupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiodesk_cleanup_errors_total",
		Help: "Errors encountered during cleanup sweeps.",
	})
	cleanupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studiodesk_cleanup_duration_seconds",
		Help:    "Duration of a cleanup sweep.",
		Buckets: prometheus.DefBuckets,
	})
)

// CleanupService drives scheduled and user-initiated deletion of uploads.
//
// Deletion happens in two phases. Phase one marks an upload deleted and
// records it in the delete queue while the payload stays on disk so the
// record can still be recovered. Phase two, after a separate grace period,
// removes the payload and marks the record unavailable for good.
type CleanupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	clock       timex.Clock
	logger      logging.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanupService constructs a CleanupService.
func NewCleanupService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, clock timex.Clock, logger logging.Logger) *CleanupService {
	return &CleanupService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		clock:       clock,
		logger:      logger.With("component", "cleanup"),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (s *CleanupService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (s *CleanupService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *CleanupService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error(ctx, "cleanup sweep failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single sweep. It is a no-op unless the configured
// wall-clock gate matches the current minute. Sweeps never overlap.
func (s *CleanupService) RunOnce(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			cleanupErrors.Inc()
			err = fmt.Errorf("cleanup sweep panicked: %v", p)
		}
	}()

	now := s.clock.Now()
	due, err := s.scheduleMatches(ctx, now)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	runID := uuid.NewString()
	log := s.logger.With("run_id", runID)
	log.Info(ctx, "cleanup sweep started")

	start := time.Now()
	defer func() {
		cleanupRuns.Inc()
		cleanupDuration.Observe(time.Since(start).Seconds())
	}()

	// The phases run in separate transactions: a failure marking receipts
	// must not hold back physical deletion of already-queued files, and
	// vice versa.
	if err := s.softDeleteSweep(ctx, log, now); err != nil {
		cleanupErrors.Inc()
		log.Error(ctx, "soft delete phase failed", "error", err.Error())
	}
	if err := s.hardDeleteSweep(ctx, log, now); err != nil {
		cleanupErrors.Inc()
		log.Error(ctx, "hard delete phase failed", "error", err.Error())
	}

	log.Info(ctx, "cleanup sweep finished")
	return nil
}

// scheduleMatches reports whether the configured HH:MM gate equals the
// current hour and minute. A missing or unparsable setting disables the
// scheduler rather than failing the sweep.
func (s *CleanupService) scheduleMatches(ctx context.Context, now time.Time) (bool, error) {
	raw, err := s.repomanager.Settings(s.db).Get(ctx, SettingScheduledTime)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading schedule setting: %w", err)
	}

	gate, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn(ctx, "unparsable schedule setting", "value", raw)
		return false, nil
	}
	return gate.Hour() == now.Hour() && gate.Minute() == now.Minute(), nil
}

// retentionDays reads an integer day-count setting. ok is false when the
// setting is absent or unusable, which silently disables the phase.
func (s *CleanupService) retentionDays(ctx context.Context, key string, rejectNegative bool) (days int, ok bool, err error) {
	raw, err := s.repomanager.Settings(s.db).Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error reading setting %s: %w", key, err)
	}

	days, err = strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn(ctx, "unparsable retention setting", "key", key, "value", raw)
		return 0, false, nil
	}
	if rejectNegative && days < 0 {
		s.logger.Warn(ctx, "negative retention setting", "key", key, "value", raw)
		return 0, false, nil
	}
	return days, true, nil
}

// softDeleteSweep marks bill payment receipts older than the receipt
// retention window as deleted and enqueues their files for later removal.
func (s *CleanupService) softDeleteSweep(ctx context.Context, log logging.Logger, now time.Time) error {
	days, ok, err := s.retentionDays(ctx, SettingReceiptDeleteDays, true)
	if err != nil || !ok {
		return err
	}
	cutoff := now.AddDate(0, 0, -days)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		expired, err := s.repomanager.Uploads(tx).ListActiveBySourceBefore(ctx, models.SourceBillPayment, cutoff)
		if err != nil {
			return fmt.Errorf("error listing expired receipts: %w", err)
		}

		for _, upload := range expired {
			if err := s.performSoftDelete(ctx, tx, upload, "", "Deleted via scheduler", now); err != nil {
				return fmt.Errorf("error soft deleting %s: %w", upload.UploadID, err)
			}
			cleanupSoftDeleted.Inc()
		}
		if len(expired) > 0 {
			log.Info(ctx, "receipts soft deleted", "count", len(expired))
		}
		return nil
	})
}

// performSoftDelete flips the deleted flag, queues the file if its payload
// is still present, and rewrites the remark.
func (s *CleanupService) performSoftDelete(ctx context.Context, tx dbx.DBTX, upload *models.Upload, userRemarks, actor string, now time.Time) error {
	upload.MarkDeleted = true

	// Only a present payload goes to the physical delete queue. A record
	// whose file is already gone has nothing left to remove.
	if upload.IsAvailable {
		queue := s.repomanager.DeleteQueue(tx)
		queued, err := queue.ExistsByUploadID(ctx, upload.UploadID)
		if err != nil {
			return err
		}
		if !queued {
			if err := queue.Create(ctx, upload.UploadID, now); err != nil {
				return err
			}
		}
	}

	remark := actor + " on " + now.Format(common.RemarkTimeLayout)
	if userRemarks != "" {
		remark += "\nRemark : " + userRemarks
	}
	upload.Remarks = remark

	return s.repomanager.Uploads(tx).Save(ctx, upload)
}

// hardDeleteSweep physically removes queued files whose soft-delete instant
// is older than the absolute retention window.
func (s *CleanupService) hardDeleteSweep(ctx context.Context, log logging.Logger, now time.Time) error {
	days, ok, err := s.retentionDays(ctx, SettingAbsoluteDays, false)
	if err != nil || !ok {
		return err
	}
	cutoff := now.AddDate(0, 0, -days)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		entries, err := s.repomanager.DeleteQueue(tx).ListOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("error listing delete queue: %w", err)
		}

		deleted := 0
		for _, entry := range entries {
			if err := s.hardDeleteEntry(ctx, tx, entry, now); err != nil {
				// Leave the queue entry in place so the next sweep
				// retries this upload.
				cleanupErrors.Inc()
				log.Error(ctx, "hard delete failed",
					"upload_id", entry.UploadID, "error", err.Error())
				continue
			}
			deleted++
			cleanupHardDeleted.Inc()
		}
		if deleted > 0 {
			log.Info(ctx, "files hard deleted", "count", deleted)
		}
		return nil
	})
}

// hardDeleteEntry removes one queued upload's payload and dequeues it. An
// upload record that disappeared still gets its queue entry cleared.
func (s *CleanupService) hardDeleteEntry(ctx context.Context, tx dbx.DBTX, entry *models.DeleteQueueEntry, now time.Time) error {
	upload, err := s.repomanager.Uploads(tx).GetByID(ctx, entry.UploadID)
	if errors.Is(err, common.ErrorNotFound) {
		return s.repomanager.DeleteQueue(tx).DeleteByUploadID(ctx, entry.UploadID)
	}
	if err != nil {
		return err
	}

	if err := s.performHardDelete(ctx, tx, upload, now); err != nil {
		return err
	}
	return s.repomanager.DeleteQueue(tx).DeleteByUploadID(ctx, entry.UploadID)
}

// performHardDelete removes the payload and finalizes the record. A failed
// blob removal is logged and swallowed: the file may already be gone, and
// the record must reflect its loss either way.
func (s *CleanupService) performHardDelete(ctx context.Context, tx dbx.DBTX, upload *models.Upload, now time.Time) error {
	if err := s.blobs.Delete(ctx, upload.UploadPath); err != nil {
		s.logger.Error(ctx, "blob removal failed",
			"upload_id", upload.UploadID, "error", err.Error())
	}

	upload.IsAvailable = false
	upload.Remarks += "\nFile removed on " + now.Format(common.RemarkTimeLayout)

	return s.repomanager.Uploads(tx).Save(ctx, upload)
}

// SoftDelete marks an upload deleted on behalf of a user, outside of the
// schedule gate. The ID may carry an extension.
func (s *CleanupService) SoftDelete(ctx context.Context, uploadID, remarks string) error {
	id := normalizeUploadID(uploadID)
	now := s.clock.Now()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		upload, err := s.repomanager.Uploads(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		return s.performSoftDelete(ctx, tx, upload, remarks, "Deleted via user", now)
	})
}

// Recover undoes a soft delete before the file is physically removed.
// Recovering an upload that is not marked deleted is a no-op.
func (s *CleanupService) Recover(ctx context.Context, uploadID, remarks string) error {
	id := normalizeUploadID(uploadID)
	now := s.clock.Now()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		upload, err := s.repomanager.Uploads(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !upload.MarkDeleted {
			return nil
		}

		upload.MarkDeleted = false
		if err := s.repomanager.DeleteQueue(tx).DeleteByUploadID(ctx, upload.UploadID); err != nil {
			return err
		}

		remark := "Recovered via user on " + now.Format(common.RemarkTimeLayout)
		if remarks != "" {
			remark += "\nRemark : " + remarks
		}
		upload.Remarks = remark

		return s.repomanager.Uploads(tx).Save(ctx, upload)
	})
}
