// Package transactions persists the four transaction-bearing entities that
// carry a status history: bill payments, money transfers, service orders,
// and photo orders. Each entity has its own table and repository; they share
// the package because their shape and lifecycle are identical.
package transactions

import (
	"context"

	"github.com/arkhipovds/studiodesk/internal/server/models"
)

type BillPaymentRepository interface {
	// Create inserts the transaction and fills in its generated ID.
	Create(ctx context.Context, t *models.BillPayment) error
	// GetByID returns the transaction, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.BillPayment, error)
	// Save persists the mutable fields of an existing transaction.
	Save(ctx context.Context, t *models.BillPayment) error
}

type MoneyTransferRepository interface {
	Create(ctx context.Context, t *models.MoneyTransfer) error
	GetByID(ctx context.Context, id int64) (*models.MoneyTransfer, error)
	Save(ctx context.Context, t *models.MoneyTransfer) error
}

type ServiceOrderRepository interface {
	Create(ctx context.Context, t *models.ServiceOrder) error
	GetByID(ctx context.Context, id int64) (*models.ServiceOrder, error)
	Save(ctx context.Context, t *models.ServiceOrder) error
}

type PhotoOrderRepository interface {
	Create(ctx context.Context, t *models.PhotoOrder) error
	GetByID(ctx context.Context, id int64) (*models.PhotoOrder, error)
	Save(ctx context.Context, t *models.PhotoOrder) error
}
