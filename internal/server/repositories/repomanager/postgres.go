// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/server/migrations"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/customers"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/deletequeue"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/settings"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/transactions"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/uploads"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Uploads(db dbx.DBTX) uploads.Repository {
	return uploads.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) DeleteQueue(db dbx.DBTX) deletequeue.Repository {
	return deletequeue.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Customers(db dbx.DBTX) customers.Repository {
	return customers.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) BillPayments(db dbx.DBTX) transactions.BillPaymentRepository {
	return transactions.NewPostgresBillPayments(db)
}

func (m *PostgresRepositoryManager) MoneyTransfers(db dbx.DBTX) transactions.MoneyTransferRepository {
	return transactions.NewPostgresMoneyTransfers(db)
}

func (m *PostgresRepositoryManager) ServiceOrders(db dbx.DBTX) transactions.ServiceOrderRepository {
	return transactions.NewPostgresServiceOrders(db)
}

func (m *PostgresRepositoryManager) PhotoOrders(db dbx.DBTX) transactions.PhotoOrderRepository {
	return transactions.NewPostgresPhotoOrders(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
