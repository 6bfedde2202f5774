package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders  map[string]models.Order
	mu      sync.RWMutex
	metrics *metrics.AppMetrics
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository(m *metrics.AppMetrics) *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[string]models.Order),
		metrics: m,
	}
}

// Create stores a new order with a generated ID and the current time.
func (r *MockOrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "create", "orders")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now().UTC()
	stored := *order
	stored.Items = append([]models.OrderItem{}, order.Items...)
	r.orders[order.ID] = stored
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *MockOrderRepository) ListByUser(ctx context.Context, userID string) (_ []models.Order, err error) {
	defer observe(ctx, r.metrics, backendMemory, "list", "orders")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := []models.Order{}
	for _, order := range r.orders {
		if order.UserID == userID {
			orderList = append(orderList, order)
		}
	}
	sort.SliceStable(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order by its ID, or nil when absent.
func (r *MockOrderRepository) GetByID(ctx context.Context, id string) (_ *models.Order, err error) {
	defer observe(ctx, r.metrics, backendMemory, "get", "orders")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}
