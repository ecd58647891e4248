package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arkhipovds/studiodesk/internal/logging"
	"github.com/arkhipovds/studiodesk/internal/server/history"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// PhotoOrderService manages photo orders. Unlike the other transaction
// types, photo order histories are strict chronological logs: a revisited
// status is appended again rather than rewinding the history.
type PhotoOrderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	customers   *CustomerService
	clock       timex.Clock
	logger      logging.Logger
}

// NewPhotoOrderService constructs a PhotoOrderService.
func NewPhotoOrderService(db *sql.DB, m repomanager.RepositoryManager, customers *CustomerService, clock timex.Clock, logger logging.Logger) *PhotoOrderService {
	return &PhotoOrderService{
		db:          db,
		repomanager: m,
		customers:   customers,
		clock:       clock,
		logger:      logger.With("component", "photo_orders"),
	}
}

// Create persists a new photo order in Pending status.
func (s *PhotoOrderService) Create(ctx context.Context, order *models.PhotoOrder, customer *models.Customer) (*models.PhotoOrder, error) {
	resolved, err := s.customers.EnsureCustomer(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("error resolving customer: %w", err)
	}
	if resolved != nil {
		order.CustomerID = sql.NullInt64{Int64: resolved.ID, Valid: true}
	}

	order.Status = StatusPending
	order.StatusHistoryJSON, err = history.Init(StatusPending, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error initializing status history: %w", err)
	}

	if err := s.repomanager.PhotoOrders(s.db).Create(ctx, order); err != nil {
		return nil, fmt.Errorf("error creating photo order: %w", err)
	}
	return order, nil
}

// UpdateStatus appends the new status to the order's history.
func (s *PhotoOrderService) UpdateStatus(ctx context.Context, id int64, status string) (*models.PhotoOrder, error) {
	repo := s.repomanager.PhotoOrders(s.db)

	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.StatusHistoryJSON, err = history.Apply(order.StatusHistoryJSON, status, history.ModeStrictAppend, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error applying status: %w", err)
	}
	order.Status = status

	if err := repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("error saving photo order: %w", err)
	}
	return order, nil
}

// BulkUpdateStatus applies the same status change to several orders.
// Failures are collected per order so one bad ID does not abort the batch;
// updated holds the orders that did change.
func (s *PhotoOrderService) BulkUpdateStatus(ctx context.Context, ids []int64, status string) (updated []*models.PhotoOrder, failed []int64) {
	for _, id := range ids {
		order, err := s.UpdateStatus(ctx, id, status)
		if err != nil {
			s.logger.Error(ctx, "bulk status update failed",
				"order_id", id, "status", status, "error", err.Error())
			failed = append(failed, id)
			continue
		}
		updated = append(updated, order)
	}
	return updated, failed
}

// SetUpload attaches or replaces the order's upload reference.
func (s *PhotoOrderService) SetUpload(ctx context.Context, id int64, uploadID string) (*models.PhotoOrder, error) {
	repo := s.repomanager.PhotoOrders(s.db)

	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.UploadID = uploadID
	if err := repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("error saving photo order: %w", err)
	}
	return order, nil
}

// Get returns the order by ID.
func (s *PhotoOrderService) Get(ctx context.Context, id int64) (*models.PhotoOrder, error) {
	return s.repomanager.PhotoOrders(s.db).GetByID(ctx, id)
}
