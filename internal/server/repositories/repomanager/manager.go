package repomanager

import (
	"context"
	"database/sql"

	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/customers"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/deletequeue"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/settings"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/transactions"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/uploads"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Uploads(db dbx.DBTX) uploads.Repository
	DeleteQueue(db dbx.DBTX) deletequeue.Repository
	Customers(db dbx.DBTX) customers.Repository
	Settings(db dbx.DBTX) settings.Repository
	BillPayments(db dbx.DBTX) transactions.BillPaymentRepository
	MoneyTransfers(db dbx.DBTX) transactions.MoneyTransferRepository
	ServiceOrders(db dbx.DBTX) transactions.ServiceOrderRepository
	PhotoOrders(db dbx.DBTX) transactions.PhotoOrderRepository
}
