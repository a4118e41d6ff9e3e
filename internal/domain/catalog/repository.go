package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)

	// FindPurchasableByCodes returns the purchasable products matching the
	// given codes in a single lookup. Codes with no purchasable match are
	// simply absent from the result; callers decide how to treat the gap.
	FindPurchasableByCodes(ctx context.Context, codes []string) ([]Product, error)

	Save(ctx context.Context, product *Product) error
}
