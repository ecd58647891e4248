package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arkhipovds/studiodesk/internal/server/history"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// ServiceOrderService manages orders for configured service items.
type ServiceOrderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	customers   *CustomerService
	clock       timex.Clock
}

// NewServiceOrderService constructs a ServiceOrderService.
func NewServiceOrderService(db *sql.DB, m repomanager.RepositoryManager, customers *CustomerService, clock timex.Clock) *ServiceOrderService {
	return &ServiceOrderService{db: db, repomanager: m, customers: customers, clock: clock}
}

// Create persists a new service order in Pending status.
func (s *ServiceOrderService) Create(ctx context.Context, order *models.ServiceOrder, customer *models.Customer) (*models.ServiceOrder, error) {
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

	if err := s.repomanager.ServiceOrders(s.db).Create(ctx, order); err != nil {
		return nil, fmt.Errorf("error creating service order: %w", err)
	}
	return order, nil
}

// UpdateStatus moves the order to a new status with rollback-on-rewind
// history semantics.
func (s *ServiceOrderService) UpdateStatus(ctx context.Context, id int64, status string) (*models.ServiceOrder, error) {
	repo := s.repomanager.ServiceOrders(s.db)

	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.StatusHistoryJSON, err = history.Apply(order.StatusHistoryJSON, status, history.ModeUpsertRollback, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error applying status: %w", err)
	}
	order.Status = status

	if err := repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("error saving service order: %w", err)
	}
	return order, nil
}

// SetUpload attaches or replaces the receipt upload reference.
func (s *ServiceOrderService) SetUpload(ctx context.Context, id int64, uploadID string) (*models.ServiceOrder, error) {
	repo := s.repomanager.ServiceOrders(s.db)

	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.UploadID = uploadID
	if err := repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("error saving service order: %w", err)
	}
	return order, nil
}

// Get returns the order by ID.
func (s *ServiceOrderService) Get(ctx context.Context, id int64) (*models.ServiceOrder, error) {
	return s.repomanager.ServiceOrders(s.db).GetByID(ctx, id)
}
