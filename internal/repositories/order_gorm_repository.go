package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db      *gorm.DB
	metrics *metrics.AppMetrics
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB, m *metrics.AppMetrics) *GORMOrderRepository {
	return &GORMOrderRepository{db: db, metrics: m}
}

// Create inserts the order. CreatedAt is stamped at insert time.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "create", "orders")(&err)

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Time{}
	record := orderRecordFromModel(*order)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.CreatedAt = record.CreatedAt.UTC()
	return nil
}

func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) (_ []models.Order, err error) {
	defer observe(ctx, r.metrics, backendGORM, "list", "orders")(&err)

	var records []orderRecord
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of %s: %w", userID, err)
	}
	orders := make([]models.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, rec.toModel())
	}
	return orders, nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (_ *models.Order, err error) {
	defer observe(ctx, r.metrics, backendGORM, "get", "orders")(&err)

	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	order := record.toModel()
	return &order, nil
}
