package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"shopwave/internal/cart"
	"shopwave/internal/metrics"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

const (
	// AdminProductsPath is where the admin lands after a product write.
	AdminProductsPath = "/admin/products"
	// SearchLimit caps product search results.
	SearchLimit = 20
)

// ErrProductNotFound is returned when a product id does not resolve.
var ErrProductNotFound = errors.New("product not found")

// ProductForm is the full product form. Images is the comma-separated text field.
type ProductForm struct {
	Name        string  `json:"name" form:"name" validate:"required,min=3"`
	Description string  `json:"description" form:"description" validate:"required,min=10"`
	Price       float64 `json:"price" form:"price" validate:"gt=0"`
	ImageURL    string  `json:"imageUrl" form:"imageUrl" validate:"required,url"`
	Images      string  `json:"images" form:"images" validate:"omitempty,urllist"`
	Category    string  `json:"category" form:"category" validate:"required,min=2"`
	Featured    bool    `json:"featured" form:"featured"`
	Stock       int     `json:"stock" form:"stock" validate:"gte=0"`
	Condition   string  `json:"condition" form:"condition" validate:"omitempty,oneof=new used"`
}

// normalized trims the text fields so length rules apply to what gets stored.
func (f ProductForm) normalized() ProductForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.Category = strings.TrimSpace(f.Category)
	f.Condition = strings.TrimSpace(f.Condition)
	return f
}

func (f ProductForm) toProduct() models.Product {
	return models.Product{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		ImageURL:    f.ImageURL,
		Images:      models.ParseImageList(f.Images),
		Category:    f.Category,
		Featured:    f.Featured,
		Stock:       f.Stock,
		Condition:   models.Condition(f.Condition).OrDefault(),
	}
}

func (f ProductForm) toUpdate() models.ProductUpdate {
	p := f.toProduct()
	return models.ProductUpdate{
		Name:        &p.Name,
		Description: &p.Description,
		Price:       &p.Price,
		ImageURL:    &p.ImageURL,
		Images:      &p.Images,
		Category:    &p.Category,
		Featured:    &p.Featured,
		Stock:       &p.Stock,
		Condition:   &p.Condition,
	}
}

// ProductPatch is a partial product write; absent fields keep their stored value.
type ProductPatch struct {
	Name        *string  `json:"name" validate:"omitempty,min=3"`
	Description *string  `json:"description" validate:"omitempty,min=10"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
	Images      *string  `json:"images" validate:"omitempty,urllist"`
	Category    *string  `json:"category" validate:"omitempty,min=2"`
	Featured    *bool    `json:"featured"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Condition   *string  `json:"condition" validate:"omitempty,oneof=new used"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (p ProductPatch) normalized() ProductPatch {
	p.Name = trimmed(p.Name)
	p.Description = trimmed(p.Description)
	p.ImageURL = trimmed(p.ImageURL)
	p.Category = trimmed(p.Category)
	p.Condition = trimmed(p.Condition)
	return p
}

func (p ProductPatch) toUpdate() models.ProductUpdate {
	u := models.ProductUpdate{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Featured:    p.Featured,
		Stock:       p.Stock,
	}
	if p.Images != nil {
		images := models.ParseImageList(*p.Images)
		u.Images = &images
	}
	if p.Condition != nil {
		c := models.Condition(*p.Condition).OrDefault()
		u.Condition = &c
	}
	return u
}

type cacheItem struct {
	products []models.Product
	expires  time.Time
}

// ProductService handles the catalog and the admin product workflow.
type ProductService struct {
	repo     repositories.ProductRepository
	validate *validator.Validate
	metrics  *metrics.AppMetrics

	cacheTTL  time.Duration
	cacheMu   sync.RWMutex
	listCache map[string]cacheItem
	cacheGen  uint64 // bumped by every invalidation
}

// NewProductService creates a new ProductService. cacheTTL <= 0 disables the list cache.
func NewProductService(repo repositories.ProductRepository, cacheTTL time.Duration, m *metrics.AppMetrics) *ProductService {
	return &ProductService{
		repo:      repo,
		validate:  NewValidator(),
		metrics:   m,
		cacheTTL:  cacheTTL,
		listCache: make(map[string]cacheItem),
	}
}

// ListProducts returns products matching filter in name order.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter, limit int) ([]models.Product, error) {
	key := listCacheKey(filter, limit)
	gen := s.listCacheGeneration()
	if cached, ok := s.getListCache(key); ok {
		s.metrics.RecordCacheLookup(ctx, true)
		return cached, nil
	}
	if s.cacheTTL > 0 {
		s.metrics.RecordCacheLookup(ctx, false)
	}

	products, err := s.repo.List(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	s.setListCache(key, gen, products)
	return products, nil
}

// ListAllProducts is the admin listing; it always reads through.
func (s *ProductService) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns ErrProductNotFound when id does not resolve.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// SearchProducts returns up to SearchLimit products whose name, or a word inside
// it, starts with term. A blank term matches nothing.
func (s *ProductService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	if strings.TrimSpace(term) == "" {
		return []models.Product{}, nil
	}
	products, err := s.repo.SearchByPrefix(ctx, term, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// CreateProduct validates form and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, form ProductForm, n cart.Notifier) (*models.Product, error) {
	form = form.normalized()
	if err := validateStruct(s.validate, form); err != nil {
		return nil, err
	}
	product := form.toProduct()
	err := s.repo.Create(ctx, &product)
	s.metrics.RecordProductWrite(ctx, "create", err)
	if err != nil {
		log.Printf("Error saving product: %v", err)
		n.Notify(cart.Failure("Error Saving Product", "Could not save the product. Please try again."))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.invalidateListCache()
	n.Notify(cart.Info("Product Created", fmt.Sprintf("%q has been successfully created.", product.Name)))
	return &product, nil
}

// UpdateProduct replaces every editable field of product id with form.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, form ProductForm, n cart.Notifier) (*models.Product, error) {
	form = form.normalized()
	if err := validateStruct(s.validate, form); err != nil {
		return nil, err
	}
	return s.update(ctx, id, form.toUpdate(), n)
}

// PatchProduct writes only the fields present in patch.
func (s *ProductService) PatchProduct(ctx context.Context, id string, patch ProductPatch, n cart.Notifier) (*models.Product, error) {
	patch = patch.normalized()
	if err := validateStruct(s.validate, patch); err != nil {
		return nil, err
	}
	return s.update(ctx, id, patch.toUpdate(), n)
}

func (s *ProductService) update(ctx context.Context, id string, update models.ProductUpdate, n cart.Notifier) (*models.Product, error) {
	product, err := s.repo.Update(ctx, id, update)
	s.metrics.RecordProductWrite(ctx, "update", err)
	if err != nil {
		log.Printf("Error saving product %s: %v", id, err)
		n.Notify(cart.Failure("Error Saving Product", "Could not save the product. Please try again."))
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	s.invalidateListCache()
	n.Notify(cart.Info("Product Updated", fmt.Sprintf("%q has been successfully updated.", product.Name)))
	return product, nil
}

// DeleteProduct removes product id. Callers confirm the deletion before calling.
func (s *ProductService) DeleteProduct(ctx context.Context, id string, n cart.Notifier) error {
	fail := func(err error) error {
		log.Printf("Error deleting product %s: %v", id, err)
		n.Notify(cart.Failure("Error Deleting Product", "Could not delete the product. Please try again."))
		return err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fail(fmt.Errorf("failed to get product %s: %w", id, err))
	}
	if product == nil {
		return fail(ErrProductNotFound)
	}

	err = s.repo.Delete(ctx, id)
	s.metrics.RecordProductWrite(ctx, "delete", err)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(ErrProductNotFound)
		}
		return fail(fmt.Errorf("failed to delete product %s: %w", id, err))
	}
	s.invalidateListCache()
	n.Notify(cart.Info("Product Deleted", fmt.Sprintf("%q has been successfully deleted.", product.Name)))
	return nil
}

func (s *ProductService) getListCache(key string) ([]models.Product, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}
	s.cacheMu.RLock()
	item, ok := s.listCache[key]
	s.cacheMu.RUnlock()
	if !ok || time.Now().After(item.expires) {
		return nil, false
	}
	return append([]models.Product{}, item.products...), true
}

func (s *ProductService) listCacheGeneration() uint64 {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cacheGen
}

// setListCache stores a list read at generation gen. A read that started before
// the latest invalidation is dropped.
func (s *ProductService) setListCache(key string, gen uint64, products []models.Product) {
	if s.cacheTTL <= 0 {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.cacheGen {
		return
	}
	s.listCache[key] = cacheItem{
		products: append([]models.Product{}, products...),
		expires:  time.Now().Add(s.cacheTTL),
	}
}

func (s *ProductService) invalidateListCache() {
	s.cacheMu.Lock()
	s.cacheGen++
	s.listCache = make(map[string]cacheItem)
	s.cacheMu.Unlock()
}

func listCacheKey(filter models.ProductFilter, limit int) string {
	featured := "-"
	if filter.Featured != nil {
		featured = fmt.Sprintf("%t", *filter.Featured)
	}
	return fmt.Sprintf("%s|%s|%s|%d", featured, filter.Category, filter.Condition, limit)
}
