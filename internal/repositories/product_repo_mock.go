package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
	metrics  *metrics.AppMetrics
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository(m *metrics.AppMetrics) *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
		metrics:  m,
	}
}

// List returns the products matching filter, ordered by name.
func (r *MockProductRepository) List(ctx context.Context, filter models.ProductFilter, limit int) (_ []models.Product, err error) {
	defer observe(ctx, r.metrics, backendMemory, "list", "products")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			productList = append(productList, cloneProduct(p))
		}
	}
	sortByName(productList)
	if limit > 0 && len(productList) > limit {
		productList = productList[:limit]
	}
	return productList, nil
}

// ListAll returns all products.
func (r *MockProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, models.ProductFilter{}, 0)
}

// GetByID returns a product by its ID, or nil when absent.
func (r *MockProductRepository) GetByID(ctx context.Context, id string) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendMemory, "get", "products")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	product = cloneProduct(product)
	return &product, nil
}

// Create adds a new product. An empty ID is generated.
func (r *MockProductRepository) Create(ctx context.Context, product *models.Product) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "create", "products")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.NameLowercase = models.LowercaseName(product.Name)
	product.Condition = product.Condition.OrDefault()
	if product.Images == nil {
		product.Images = []string{}
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update applies a partial update to an existing product.
func (r *MockProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendMemory, "update", "products")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&product)
	product.UpdatedAt = time.Now().UTC()
	r.products[id] = cloneProduct(product)
	return &product, nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "delete", "products")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// SearchByPrefix matches term against every search key of every product.
func (r *MockProductRepository) SearchByPrefix(ctx context.Context, term string, limit int) (_ []models.Product, err error) {
	term = normalizeTerm(term)
	if term == "" {
		return []models.Product{}, nil
	}
	defer observe(ctx, r.metrics, backendMemory, "search", "products")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []keyedProduct
	for _, p := range r.products {
		for _, key := range models.SearchKeys(p.Name) {
			if models.MatchesPrefix(key, term) {
				hits = append(hits, keyedProduct{key: key, product: cloneProduct(p)})
			}
		}
	}
	return collectSearchHits(hits, limit), nil
}
