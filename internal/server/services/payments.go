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

// StatusPending is the initial status of every new transaction.
const StatusPending = "Pending"

// BillPaymentService manages bill payment transactions and their status
// history.
type BillPaymentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	customers   *CustomerService
	clock       timex.Clock
}

// NewBillPaymentService constructs a BillPaymentService.
func NewBillPaymentService(db *sql.DB, m repomanager.RepositoryManager, customers *CustomerService, clock timex.Clock) *BillPaymentService {
	return &BillPaymentService{db: db, repomanager: m, customers: customers, clock: clock}
}

// Create persists a new bill payment in Pending status, resolving or
// creating the referenced customer first.
func (s *BillPaymentService) Create(ctx context.Context, payment *models.BillPayment, customer *models.Customer) (*models.BillPayment, error) {
	resolved, err := s.customers.EnsureCustomer(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("error resolving customer: %w", err)
	}
	if resolved != nil {
		payment.CustomerID = sql.NullInt64{Int64: resolved.ID, Valid: true}
	}

	payment.Status = StatusPending
	payment.StatusHistoryJSON, err = history.Init(StatusPending, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error initializing status history: %w", err)
	}

	if err := s.repomanager.BillPayments(s.db).Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("error creating bill payment: %w", err)
	}
	return payment, nil
}

// UpdateStatus moves the payment to a new status. Transitioning back to an
// earlier status rewinds the history, so a Pending after Done leaves a
// single Pending entry.
func (s *BillPaymentService) UpdateStatus(ctx context.Context, id int64, status string) (*models.BillPayment, error) {
	repo := s.repomanager.BillPayments(s.db)

	payment, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payment.StatusHistoryJSON, err = history.Apply(payment.StatusHistoryJSON, status, history.ModeUpsertRollback, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("error applying status: %w", err)
	}
	payment.Status = status

	if err := repo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("error saving bill payment: %w", err)
	}
	return payment, nil
}

// SetUpload attaches or replaces the receipt upload reference.
func (s *BillPaymentService) SetUpload(ctx context.Context, id int64, uploadID string) (*models.BillPayment, error) {
	repo := s.repomanager.BillPayments(s.db)

	payment, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payment.UploadID = uploadID
	if err := repo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("error saving bill payment: %w", err)
	}
	return payment, nil
}

// Get returns the payment by ID.
func (s *BillPaymentService) Get(ctx context.Context, id int64) (*models.BillPayment, error) {
	return s.repomanager.BillPayments(s.db).GetByID(ctx, id)
}
