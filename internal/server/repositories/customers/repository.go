// Package customers persists customer records and answers the range-max
// query used by the daily sequence allocator.
package customers

import (
	"context"

	"github.com/arkhipovds/studiodesk/internal/server/models"
)

type Repository interface {
	// Create inserts a customer with its pre-assigned ID.
	// A duplicate ID yields common.ErrAlreadyExists.
	Create(ctx context.Context, customer *models.Customer) error

	// GetByID returns the customer, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Customer, error)

	// ExistsByID reports whether a customer with id is persisted.
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// MaxIDInRange returns the greatest customer ID within [lo, hi],
	// or 0 when none exists.
	MaxIDInRange(ctx context.Context, lo, hi int64) (int64, error)

	// FindByMobile returns the customer with the exact mobile number,
	// or common.ErrorNotFound.
	FindByMobile(ctx context.Context, mobile string) (*models.Customer, error)

	// SearchByMobile returns customers whose mobile contains the fragment.
	SearchByMobile(ctx context.Context, fragment string) ([]*models.Customer, error)

	// Save persists the mutable fields of an existing customer.
	Save(ctx context.Context, customer *models.Customer) error
}
