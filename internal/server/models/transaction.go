package models

import (
	"database/sql"
	"time"
)

// BillPayment is a bill-payment transaction with an attached receipt upload
// and a JSON-encoded status history.
type BillPayment struct {
	ID         int64
	CustomerID sql.NullInt64
	// UploadID references the receipt upload, may include the extension.
	UploadID string
	Biller   string
	Amount   float64

	Status            string
	StatusHistoryJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MoneyTransfer is a money-transfer transaction.
type MoneyTransfer struct {
	ID         int64
	CustomerID sql.NullInt64
	UploadID   string
	Recipient  string
	Amount     float64

	Status            string
	StatusHistoryJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceOrder is an order for a configured service item.
type ServiceOrder struct {
	ID          int64
	CustomerID  sql.NullInt64
	UploadID    string
	ServiceName string
	Amount      float64

	Status            string
	StatusHistoryJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PhotoOrder is a photo order. Its status history uses the plain
// chronological-append contract rather than upsert-with-rollback.
type PhotoOrder struct {
	ID         int64
	CustomerID sql.NullInt64
	UploadID   string
	ItemsJSON  string
	DueAmount  float64

	Status            string
	StatusHistoryJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}
