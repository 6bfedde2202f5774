package repositories

import (
	"context"

	"shopwave/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// List returns products matching filter ordered by name; limit <= 0 means no limit.
	List(ctx context.Context, filter models.ProductFilter, limit int) ([]models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	// GetByID returns (nil, nil) when the product does not exist.
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	// SearchByPrefix range-scans the search keys over [term, term+SearchKeyCeiling).
	SearchByPrefix(ctx context.Context, term string, limit int) ([]models.Product, error)
}
