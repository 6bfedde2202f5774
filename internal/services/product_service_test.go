package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopwave/internal/cart"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
	"shopwave/internal/services"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter models.ProductFilter, limit int) ([]models.Product, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (*models.Product, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) SearchByPrefix(ctx context.Context, term string, limit int) ([]models.Product, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func validForm() services.ProductForm {
	return services.ProductForm{
		Name:        "Classic Leather Wallet",
		Description: "Hand-stitched full grain leather.",
		Price:       49.99,
		ImageURL:    "https://img.example.com/wallet.png",
		Images:      "https://img.example.com/a.png, https://img.example.com/b.png",
		Category:    "Accessories",
		Stock:       10,
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)
	inbox := cart.NewInbox()

	mockRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Classic Leather Wallet" &&
			p.Condition == models.ConditionNew &&
			len(p.Images) == 2 && !p.Featured
	})).Return(nil).Once()

	product, err := service.CreateProduct(ctx, validForm(), inbox)
	require.NoError(t, err)
	assert.Equal(t, "Classic Leather Wallet", product.Name)
	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Product Created", notes[0].Title)
	assert.Equal(t, `"Classic Leather Wallet" has been successfully created.`, notes[0].Description)
	mockRepo.AssertExpectations(t)

	// store failure
	mockRepo.On("Create", ctx, mock.Anything).Return(fmt.Errorf("database error")).Once()
	_, err = service.CreateProduct(ctx, validForm(), inbox)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	notes = inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Error Saving Product", notes[0].Title)
	assert.Equal(t, cart.VariantDestructive, notes[0].Variant)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct_Validation(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	form := validForm()
	form.Name = "ab"
	form.Description = "short"
	form.Price = 0
	form.ImageURL = "not a url"
	form.Images = "https://ok.example.com/x.png,nope"
	form.Category = "A"
	form.Stock = -1
	form.Condition = "refurbished"

	_, err := service.CreateProduct(context.Background(), form, cart.NewInbox())

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"name", "description", "price", "imageUrl", "images", "category", "stock", "condition"} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Equal(t, "Field 'name' failed on the 'min' tag", verr.Fields["name"])
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProductService_NameLengthCountsAfterTrim(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	form := validForm()
	form.Name = "  ab  "
	_, err := service.CreateProduct(ctx, form, cart.NewInbox())
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Field 'name' failed on the 'min' tag", verr.Fields["name"])

	_, err = service.UpdateProduct(ctx, "1", form, cart.NewInbox())
	assert.ErrorAs(t, err, &verr)

	short := "  ab "
	_, err = service.PatchProduct(ctx, "1", services.ProductPatch{Name: &short}, cart.NewInbox())
	assert.ErrorAs(t, err, &verr)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)

	// surrounding blanks are dropped from a valid name
	form.Name = "  Test Mug  "
	mockRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Test Mug"
	})).Return(nil).Once()
	product, err := service.CreateProduct(ctx, form, cart.NewInbox())
	require.NoError(t, err)
	assert.Equal(t, "Test Mug", product.Name)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ImageListRejectsBlankEntries(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	for _, images := range []string{
		"https://a.example.com/b.png, ,https://c.example.com/d.png",
		"https://a.example.com/b.png,",
	} {
		form := validForm()
		form.Images = images
		_, err := service.CreateProduct(ctx, form, cart.NewInbox())
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr, images)
		assert.Contains(t, verr.Fields, "images")
	}
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// a blank field means no extra images
	mockRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return len(p.Images) == 0
	})).Return(nil).Once()
	form := validForm()
	form.Images = "   "
	_, err := service.CreateProduct(ctx, form, cart.NewInbox())
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_PatchProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)
	inbox := cart.NewInbox()

	price := 12.0
	mockRepo.On("Update", ctx, "1", mock.MatchedBy(func(u models.ProductUpdate) bool {
		return u.Price != nil && *u.Price == 12.0 && u.Name == nil && u.Images == nil
	})).Return(&models.Product{ID: "1", Name: "Test Mug", Price: 12.0}, nil).Once()

	product, err := service.PatchProduct(ctx, "1", services.ProductPatch{Price: &price}, inbox)
	require.NoError(t, err)
	assert.Equal(t, 12.0, product.Price)
	assert.Equal(t, "Product Updated", inbox.Drain()[0].Title)

	// present but invalid
	zero := 0.0
	_, err = service.PatchProduct(ctx, "1", services.ProductPatch{Price: &zero}, inbox)
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	// missing product
	mockRepo.On("Update", ctx, "99", mock.Anything).Return(nil, repositories.ErrNotFound).Once()
	_, err = service.PatchProduct(ctx, "99", services.ProductPatch{Price: &price}, inbox)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct_WritesEveryField(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	mockRepo.On("Update", ctx, "1", mock.MatchedBy(func(u models.ProductUpdate) bool {
		return u.Name != nil && u.Description != nil && u.Price != nil && u.ImageURL != nil &&
			u.Images != nil && u.Category != nil && u.Featured != nil && u.Stock != nil &&
			u.Condition != nil && *u.Condition == models.ConditionNew
	})).Return(&models.Product{ID: "1", Name: "Classic Leather Wallet"}, nil).Once()

	_, err := service.UpdateProduct(ctx, "1", validForm(), cart.NewInbox())
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)
	inbox := cart.NewInbox()

	mockRepo.On("GetByID", ctx, "1").Return(&models.Product{ID: "1", Name: "Test Mug"}, nil).Once()
	mockRepo.On("Delete", ctx, "1").Return(nil).Once()
	err := service.DeleteProduct(ctx, "1", inbox)
	assert.NoError(t, err)
	assert.Equal(t, `"Test Mug" has been successfully deleted.`, inbox.Drain()[0].Description)

	mockRepo.On("GetByID", ctx, "99").Return(nil, nil).Once()
	err = service.DeleteProduct(ctx, "99", inbox)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Error Deleting Product", notes[0].Title)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts_Cache(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, time.Minute, nil)

	featured := true
	filter := models.ProductFilter{Featured: &featured}
	listed := []models.Product{{ID: "1", Name: "Test Mug", Featured: true}}
	mockRepo.On("List", ctx, filter, 4).Return(listed, nil).Twice()

	for i := 0; i < 3; i++ {
		products, err := service.ListProducts(ctx, filter, 4)
		require.NoError(t, err)
		assert.Equal(t, listed, products)
	}

	// any product write forces a refresh
	mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	_, err := service.CreateProduct(ctx, validForm(), cart.NewInbox())
	require.NoError(t, err)

	_, err = service.ListProducts(ctx, filter, 4)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts_StaleReadIsNotCached(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, time.Minute, nil)

	filter := models.ProductFilter{}
	stale := []models.Product{{ID: "1", Name: "Test Mug"}}
	fresh := []models.Product{{ID: "1", Name: "Test Mug"}, {ID: "2", Name: "Wall Clock"}}

	// an admin write lands while the first read is in flight
	mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mockRepo.On("List", ctx, filter, 0).Run(func(mock.Arguments) {
		_, err := service.CreateProduct(ctx, validForm(), cart.NewInbox())
		require.NoError(t, err)
	}).Return(stale, nil).Once()
	mockRepo.On("List", ctx, filter, 0).Return(fresh, nil).Once()

	products, err := service.ListProducts(ctx, filter, 0)
	require.NoError(t, err)
	assert.Equal(t, stale, products)

	products, err = service.ListProducts(ctx, filter, 0)
	require.NoError(t, err)
	assert.Equal(t, fresh, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_SearchProducts(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	products, err := service.SearchProducts(ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	mockRepo.On("SearchByPrefix", ctx, "wallet", services.SearchLimit).
		Return([]models.Product{{ID: "1", Name: "Classic Leather Wallet"}}, nil).Once()
	products, err = service.SearchProducts(ctx, "wallet")
	require.NoError(t, err)
	assert.Len(t, products, 1)

	mockRepo.On("SearchByPrefix", ctx, "x", services.SearchLimit).Return(nil, errors.New("unavailable")).Once()
	_, err = service.SearchProducts(ctx, "x")
	assert.Error(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, 0, nil)

	expected := &models.Product{ID: "1", Name: "Product A", Price: 10.0, Stock: 100}
	mockRepo.On("GetByID", ctx, "1").Return(expected, nil).Once()
	product, err := service.GetProduct(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expected, product)

	mockRepo.On("GetByID", ctx, "99").Return(nil, nil).Once()
	product, err = service.GetProduct(ctx, "99")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}
