// Package blob abstracts the physical storage of upload bytes so the
// allocation and retention logic does not care whether files live on the
// local filesystem or in an S3-compatible bucket.
package blob

import "context"

// Store writes, removes, and probes raw upload payloads. Keys are the
// storage paths persisted on the upload records.
type Store interface {
	// Write durably stores data under key.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the payload. Deleting a missing payload is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a payload is present under key.
	Exists(ctx context.Context, key string) (bool, error)
}
