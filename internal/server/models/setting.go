package models

import "time"

// Setting is a key/value configuration entry editable at runtime
// (storage path, retention windows, scheduled times).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// AuditLog records a single configuration change.
type AuditLog struct {
	// ID is a UUID assigned when the entry is written.
	ID         string
	EntityName string
	EntityID   string
	Action     string
	FieldName  string
	OldValue   string
	NewValue   string
	CreatedAt  time.Time
}
