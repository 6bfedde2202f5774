package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository. Name search
// runs over the product_search_keys table.
type GORMProductRepository struct {
	db      *gorm.DB
	metrics *metrics.AppMetrics
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB, m *metrics.AppMetrics) *GORMProductRepository {
	return &GORMProductRepository{
		db:      db,
		metrics: m,
	}
}

// List retrieves the products matching filter from the database.
func (r *GORMProductRepository) List(ctx context.Context, filter models.ProductFilter, limit int) (_ []models.Product, err error) {
	defer observe(ctx, r.metrics, backendGORM, "list", "products")(&err)

	q := r.db.WithContext(ctx).Model(&productRecord{})
	if filter.Featured != nil {
		q = q.Where("featured = ?", *filter.Featured)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Condition != "" {
		q = q.Where("condition = ?", string(filter.Condition))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []productRecord
	if err := q.Order("name").Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return productsFromRecords(records), nil
}

// ListAll retrieves all products from the database.
func (r *GORMProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, models.ProductFilter{}, 0)
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendGORM, "get", "products")(&err)

	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	product := record.toModel()
	return &product, nil
}

// Create inserts the product and its search keys in one transaction.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "create", "products")(&err)

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.NameLowercase = models.LowercaseName(product.Name)
	product.Condition = product.Condition.OrDefault()
	record := productRecordFromModel(*product)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return writeSearchKeys(tx, record.ID, record.Name)
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	*product = record.toModel()
	return nil
}

// Update applies a partial update. The search keys are rewritten only when the
// name is part of the update.
func (r *GORMProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendGORM, "update", "products")(&err)

	var updated models.Product
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record productRecord
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		product := record.toModel()
		update.Apply(&product)
		record = productRecordFromModel(product)
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		if update.Name != nil {
			if err := tx.Where("product_id = ?", id).Delete(&productSearchKeyRecord{}).Error; err != nil {
				return err
			}
			if err := writeSearchKeys(tx, id, record.Name); err != nil {
				return err
			}
		}
		updated = record.toModel()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return &updated, nil
}

// Delete deletes a product and its search keys.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "delete", "products")(&err)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&productRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&productSearchKeyRecord{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// SearchByPrefix scans the search keys starting with term, in key order.
func (r *GORMProductRepository) SearchByPrefix(ctx context.Context, term string, limit int) (_ []models.Product, err error) {
	term = normalizeTerm(term)
	if term == "" {
		return []models.Product{}, nil
	}
	defer observe(ctx, r.metrics, backendGORM, "search", "products")(&err)

	// LIKE keeps the scan byte-wise on every dialect; the range check below is the
	// authoritative bound.
	var keys []productSearchKeyRecord
	err = r.db.WithContext(ctx).
		Where("search_key LIKE ? ESCAPE '\\'", escapeLike(term)+"%").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan search keys: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ProductID)
	}
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var records []productRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load search hits: %w", err)
	}
	byID := make(map[string]models.Product, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec.toModel()
	}

	hits := make([]keyedProduct, 0, len(keys))
	for _, k := range keys {
		p, ok := byID[k.ProductID]
		if !ok || !models.MatchesPrefix(k.SearchKey, term) {
			continue
		}
		hits = append(hits, keyedProduct{key: k.SearchKey, product: p})
	}
	return collectSearchHits(hits, limit), nil
}

func writeSearchKeys(tx *gorm.DB, productID, name string) error {
	keys := models.SearchKeys(name)
	if len(keys) == 0 {
		return nil
	}
	rows := make([]productSearchKeyRecord, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, productSearchKeyRecord{SearchKey: k, ProductID: productID})
	}
	return tx.Create(&rows).Error
}

func productsFromRecords(records []productRecord) []models.Product {
	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.toModel())
	}
	return products
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
