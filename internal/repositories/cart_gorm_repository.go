package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// GORMCartRepository stores cart rows keyed by (user_id, product_id).
type GORMCartRepository struct {
	db      *gorm.DB
	metrics *metrics.AppMetrics
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB, m *metrics.AppMetrics) *GORMCartRepository {
	return &GORMCartRepository{db: db, metrics: m}
}

func (r *GORMCartRepository) List(ctx context.Context, userID string) (_ []models.CartItem, err error) {
	defer observe(ctx, r.metrics, backendGORM, "list", "cart")(&err)

	var records []cartItemRecord
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").Order("product_id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart of %s: %w", userID, err)
	}
	items := make([]models.CartItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.toModel())
	}
	return items, nil
}

func (r *GORMCartRepository) Upsert(ctx context.Context, userID string, item models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "upsert", "cart")(&err)
	if err := validCartItem(item); err != nil {
		return err
	}

	record := cartItemRecordFromModel(userID, item)
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "image_url", "quantity", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cart item %s: %w", item.ID, err)
	}
	return nil
}

func (r *GORMCartRepository) Delete(ctx context.Context, userID, productID string) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "delete", "cart")(&err)

	err = r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&cartItemRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cart item %s: %w", productID, err)
	}
	return nil
}

func (r *GORMCartRepository) Clear(ctx context.Context, userID string) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "clear", "cart")(&err)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ?", userID).Delete(&cartItemRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to clear cart of %s: %w", userID, err)
	}
	return nil
}

func (r *GORMCartRepository) Merge(ctx context.Context, userID string, items []models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "merge", "cart")(&err)
	for _, item := range items {
		if err := validCartItem(item); err != nil {
			return err
		}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			var existing cartItemRecord
			err := tx.First(&existing, "user_id = ? AND product_id = ?", userID, item.ID).Error
			switch {
			case err == nil:
				res := tx.Model(&cartItemRecord{}).
					Where("user_id = ? AND product_id = ?", userID, item.ID).
					Update("quantity", gorm.Expr("quantity + ?", item.Quantity))
				if res.Error != nil {
					return res.Error
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				record := cartItemRecordFromModel(userID, item)
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge cart of %s: %w", userID, err)
	}
	return nil
}
