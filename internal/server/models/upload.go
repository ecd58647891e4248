// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"strings"
	"time"
)

// SourceType identifies which part of the system produced an upload.
// The values are the human-readable names shown in the UI and stored as-is.
type SourceType string

const (
	SourcePhotoOrders   SourceType = "Photo Orders"
	SourceUploads       SourceType = "Uploads"
	SourceBillPayment   SourceType = "Bill Payment"
	SourceMoneyTransfer SourceType = "Money Transfer"
	SourceService       SourceType = "Service"
)

// SourceTypeFromString resolves a display name to a SourceType,
// case-insensitively. Unknown names yield the empty SourceType.
func SourceTypeFromString(s string) SourceType {
	for _, st := range []SourceType{
		SourcePhotoOrders, SourceUploads, SourceBillPayment, SourceMoneyTransfer, SourceService,
	} {
		if strings.EqualFold(string(st), s) {
			return st
		}
	}
	return ""
}

// Upload describes a stored file and its lifecycle state. The record itself
// is never deleted; hard deletion removes the bytes and keeps the row for
// audit.
type Upload struct {
	// UploadID is the generated identity, format FYYMMDDNNN. Immutable.
	UploadID string
	// UploadPath is the absolute path (or blob key) of the stored bytes.
	UploadPath string
	// Extension is the original file extension including the dot, may be empty.
	Extension string
	// OriginalFilename is the name the file was uploaded under.
	OriginalFilename string
	// UploadedFrom records which flow produced the file.
	UploadedFrom SourceType

	// IsAvailable reflects the last observed presence of the bytes on disk.
	IsAvailable bool
	// MarkDeleted is set when the upload is soft-deleted.
	MarkDeleted bool
	// Remarks is a human-readable note describing the last lifecycle action.
	// Soft delete and recovery replace it; hard delete appends to it.
	Remarks string

	// LinkedCustomerID optionally ties the upload to a customer.
	LinkedCustomerID sql.NullInt64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeleteQueueEntry schedules a soft-deleted upload for physical removal.
type DeleteQueueEntry struct {
	ID       int64
	UploadID string
	// SoftDeleteTime is when the upload transitioned to soft-deleted.
	SoftDeleteTime time.Time
	CreatedAt      time.Time
}
