package repositories

import (
	"context"

	"shopwave/internal/models"
)

// OrderRepository defines the interface for order data access. Orders are never
// updated once placed.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
}
