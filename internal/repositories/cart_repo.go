package repositories

import (
	"context"

	"shopwave/internal/models"
)

// CartRepository defines access to a user's remote cart, one row per product.
type CartRepository interface {
	List(ctx context.Context, userID string) ([]models.CartItem, error)
	// Upsert replaces the row for item.ID. Quantities below 1 are rejected.
	Upsert(ctx context.Context, userID string, item models.CartItem) error
	// Delete removes a row; deleting a missing row succeeds.
	Delete(ctx context.Context, userID, productID string) error
	// Clear removes every row in one atomic write.
	Clear(ctx context.Context, userID string) error
	// Merge folds items into the cart in one atomic write: existing rows get the
	// quantities summed, missing rows are inserted as given.
	Merge(ctx context.Context, userID string, items []models.CartItem) error
}
