// Package filex contains small filesystem helpers.
package filex

import (
	"fmt"
	"os"
)

// EnsureDir creates dir (and any parents) if it does not exist yet.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
