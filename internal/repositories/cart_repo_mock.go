package repositories

import (
	"context"
	"sync"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// MockCartRepository keeps carts in memory, preserving row insertion order.
type MockCartRepository struct {
	carts   map[string][]models.CartItem
	mu      sync.RWMutex
	metrics *metrics.AppMetrics
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository(m *metrics.AppMetrics) *MockCartRepository {
	return &MockCartRepository{
		carts:   make(map[string][]models.CartItem),
		metrics: m,
	}
}

func (r *MockCartRepository) List(ctx context.Context, userID string) (_ []models.CartItem, err error) {
	defer observe(ctx, r.metrics, backendMemory, "list", "cart")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.CartItem{}, r.carts[userID]...), nil
}

func (r *MockCartRepository) Upsert(ctx context.Context, userID string, item models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "upsert", "cart")(&err)
	if err := validCartItem(item); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[userID] = upsertRow(r.carts[userID], item)
	return nil
}

func (r *MockCartRepository) Delete(ctx context.Context, userID, productID string) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "delete", "cart")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.carts[userID]
	kept := rows[:0]
	for _, row := range rows {
		if row.ID != productID {
			kept = append(kept, row)
		}
	}
	r.carts[userID] = kept
	return nil
}

func (r *MockCartRepository) Clear(ctx context.Context, userID string) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "clear", "cart")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

func (r *MockCartRepository) Merge(ctx context.Context, userID string, items []models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "merge", "cart")(&err)
	for _, item := range items {
		if err := validCartItem(item); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// build on a copy so a failure leaves the cart untouched
	rows := append([]models.CartItem{}, r.carts[userID]...)
	for _, item := range items {
		rows = mergeRow(rows, item)
	}
	r.carts[userID] = rows
	return nil
}

func upsertRow(rows []models.CartItem, item models.CartItem) []models.CartItem {
	for i := range rows {
		if rows[i].ID == item.ID {
			rows[i] = item
			return rows
		}
	}
	return append(rows, item)
}

func mergeRow(rows []models.CartItem, item models.CartItem) []models.CartItem {
	for i := range rows {
		if rows[i].ID == item.ID {
			rows[i].Quantity += item.Quantity
			return rows
		}
	}
	return append(rows, item)
}
