// Package common defines shared constants and sentinel errors used across
// the studiodesk backend. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Upload allocation errors.
	ErrStorageNotConfigured = errors.New("storage path not configured")
	ErrAllocationExhausted  = errors.New("could not allocate a unique upload id")
)
