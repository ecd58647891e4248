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

// MoneyTransferService manages money transfer transactions.
type MoneyTransferService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	customers   *CustomerService
	clock       timex.Clock
}

// NewMoneyTransferService constructs a MoneyTransferService.
func NewMoneyTransferService(db *sql.DB, m repomanager.RepositoryManager, customers *CustomerService, clock timex.Clock) *MoneyTransferService {
	return &MoneyTransferService{db: db, repomanager: m, customers: customers, clock: clock}
}

// Create persists a new transfer in Pending status.
func (s *MoneyTransferService) Create(ctx context.Context, transfer *models.MoneyTransfer, customer *models.Customer) (*models.MoneyTransfer, error) {
	resolved, err := s.customers.EnsureCustomer(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("error resolving customer: %w", err)
	}
	if resolved != nil {
		transfer.CustomerID = sql.NullInt64{Int64: resolved.ID, Valid: true}
	}

	transfer.Status = StatusPending
	transfer.StatusHistoryJSON, err = history.Init(StatusPending, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error initializing status history: %w", err)
	}

	if err := s.repomanager.MoneyTransfers(s.db).Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("error creating money transfer: %w", err)
	}
	return transfer, nil
}

// UpdateStatus moves the transfer to a new status with rollback-on-rewind
// history semantics.
func (s *MoneyTransferService) UpdateStatus(ctx context.Context, id int64, status string) (*models.MoneyTransfer, error) {
	repo := s.repomanager.MoneyTransfers(s.db)

	transfer, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transfer.StatusHistoryJSON, err = history.Apply(transfer.StatusHistoryJSON, status, history.ModeUpsertRollback, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error applying status: %w", err)
	}
	transfer.Status = status

	if err := repo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("error saving money transfer: %w", err)
	}
	return transfer, nil
}

// SetUpload attaches or replaces the receipt upload reference.
func (s *MoneyTransferService) SetUpload(ctx context.Context, id int64, uploadID string) (*models.MoneyTransfer, error) {
	repo := s.repomanager.MoneyTransfers(s.db)

	transfer, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transfer.UploadID = uploadID
	if err := repo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("error saving money transfer: %w", err)
	}
	return transfer, nil
}

// Get returns the transfer by ID.
func (s *MoneyTransferService) Get(ctx context.Context, id int64) (*models.MoneyTransfer, error) {
	return s.repomanager.MoneyTransfers(s.db).GetByID(ctx, id)
}
