package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

// MockCartRepository is a mock implementation of repositories.CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *MockCartRepository) Upsert(ctx context.Context, userID string, item models.CartItem) error {
	return m.Called(ctx, userID, item).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartRepository) Merge(ctx context.Context, userID string, items []models.CartItem) error {
	return m.Called(ctx, userID, items).Error(0)
}

var (
	wallet = models.Product{ID: "p-wallet", Name: "Classic Leather Wallet", Price: 49.99, ImageURL: "https://img/wallet.png"}
	mug    = models.Product{ID: "p-mug", Name: "Test Mug", Price: 12.5}
	alice  = &identity.User{UID: "u-alice", Email: "alice@example.com"}
)

func newGuestCart(t *testing.T) (*cart.Container, *cart.MemoryStorage, *cart.Inbox) {
	t.Helper()
	storage := cart.NewMemoryStorage()
	inbox := cart.NewInbox()
	c := cart.NewContainer(cart.Options{
		Carts:    repositories.NewMockCartRepository(nil),
		Storage:  storage,
		Notifier: inbox,
	})
	c.Settle(t.Context(), nil)
	inbox.Drain()
	return c, storage, inbox
}

func localBlob(t *testing.T, storage cart.LocalStorage) []models.CartItem {
	t.Helper()
	blob, ok, err := storage.Get(cart.LocalCartStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var items []models.CartItem
	require.NoError(t, json.Unmarshal([]byte(blob), &items))
	return items
}

func TestContainer_GuestAddPersistsLocally(t *testing.T) {
	c, storage, inbox := newGuestCart(t)

	c.AddToCart(wallet, 2)
	c.AddToCart(wallet, 1)
	c.AddToCart(mug, 0)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p-wallet", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "p-mug", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity, "quantity below 1 counts as 1")

	assert.Equal(t, items, localBlob(t, storage))
	assert.Equal(t, 4, c.ItemCount())
	assert.Equal(t, 162.47, c.Total())

	notes := inbox.Drain()
	require.Len(t, notes, 3)
	assert.Equal(t, "Added to cart", notes[0].Title)
	assert.Equal(t, "Classic Leather Wallet has been added to your cart.", notes[0].Description)
	assert.Equal(t, cart.VariantDefault, notes[0].Variant)
}

func TestContainer_RemoveAndUpdate(t *testing.T) {
	c, storage, inbox := newGuestCart(t)
	c.AddToCart(wallet, 1)
	c.AddToCart(mug, 1)
	inbox.Drain()

	c.UpdateQuantity("p-mug", 4)
	assert.Empty(t, inbox.Drain(), "quantity changes are silent")
	assert.Equal(t, 4, c.Items()[1].Quantity)

	c.UpdateQuantity("p-missing", 3)
	assert.Len(t, c.Items(), 2)

	c.UpdateQuantity("p-wallet", 0)
	require.Len(t, c.Items(), 1)
	assert.Equal(t, "Removed from cart", inbox.Drain()[0].Title)

	c.UpdateQuantity("p-mug", -1)
	assert.Empty(t, c.Items())
	assert.Equal(t, "Removed from cart", inbox.Drain()[0].Title)
	assert.Empty(t, localBlob(t, storage))

	c.AddToCart(mug, 1)
	c.RemoveFromCart("p-mug")
	c.RemoveFromCart("p-mug")
	assert.Empty(t, c.Items())
	assert.Empty(t, localBlob(t, storage))
}

func TestContainer_ClearGuest(t *testing.T) {
	c, storage, inbox := newGuestCart(t)
	c.AddToCart(wallet, 1)
	inbox.Drain()

	c.ClearCart()

	assert.Empty(t, c.Items())
	blob, ok, err := storage.Get(cart.LocalCartStorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", blob)
	assert.Equal(t, "Cart cleared", inbox.Drain()[0].Title)
}

func TestContainer_GuestSettleReadsBlob(t *testing.T) {
	for name, blob := range map[string]string{"null": "null", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			storage := cart.NewMemoryStorage()
			require.NoError(t, storage.Set(cart.LocalCartStorageKey, blob))
			c := cart.NewContainer(cart.Options{Storage: storage})
			assert.True(t, c.Loading())

			c.Settle(t.Context(), nil)

			assert.False(t, c.Loading())
			assert.NotNil(t, c.Items())
			assert.Empty(t, c.Items())
		})
	}
}

func TestContainer_MergeOnSignIn(t *testing.T) {
	ctx := t.Context()
	remote := repositories.NewMockCartRepository(nil)
	require.NoError(t, remote.Upsert(ctx, alice.UID, models.CartItem{ID: "A", Name: "A", Price: 10, Quantity: 2}))

	storage := cart.NewMemoryStorage()
	local, _ := json.Marshal([]models.CartItem{
		{ID: "A", Name: "A", Price: 10, Quantity: 3},
		{ID: "B", Name: "B", Price: 5, Quantity: 1},
	})
	require.NoError(t, storage.Set(cart.LocalCartStorageKey, string(local)))

	inbox := cart.NewInbox()
	c := cart.NewContainer(cart.Options{Carts: remote, Storage: storage, Notifier: inbox})
	c.Settle(ctx, alice)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "B", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)

	_, ok, err := storage.Get(cart.LocalCartStorageKey)
	require.NoError(t, err)
	assert.False(t, ok, "local blob is cleared after the merge")

	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Cart Synced", notes[0].Title)
	assert.Equal(t, "Your local cart has been merged with your account.", notes[0].Description)
}

func TestContainer_SignedInWritesGoRemote(t *testing.T) {
	ctx := t.Context()
	remote := repositories.NewMockCartRepository(nil)
	storage := cart.NewMemoryStorage()
	c := cart.NewContainer(cart.Options{Carts: remote, Storage: storage})
	c.Settle(ctx, alice)

	c.AddToCart(wallet, 1)
	c.AddToCart(wallet, 2)
	c.AddToCart(mug, 1)
	c.RemoveFromCart("p-mug")
	require.NoError(t, c.Flush(ctx))

	rows, err := remote.List(ctx, alice.UID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)

	_, ok, err := storage.Get(cart.LocalCartStorageKey)
	require.NoError(t, err)
	assert.False(t, ok, "signed-in carts are not persisted locally")

	c.ClearCart()
	require.NoError(t, c.Flush(ctx))
	rows, err = remote.List(ctx, alice.UID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestContainer_SignOutLoadsGuestCart(t *testing.T) {
	ctx := t.Context()
	remote := repositories.NewMockCartRepository(nil)
	require.NoError(t, remote.Upsert(ctx, alice.UID, models.CartItem{ID: "A", Quantity: 1}))
	c := cart.NewContainer(cart.Options{Carts: remote})

	c.Settle(ctx, alice)
	assert.Len(t, c.Items(), 1)

	c.Settle(ctx, nil)
	assert.Empty(t, c.Items())
	assert.Nil(t, c.User())
}

func TestContainer_LoadFailureLeavesEmptyCart(t *testing.T) {
	ctx := t.Context()
	remote := new(MockCartRepository)
	remote.On("List", mock.Anything, alice.UID).Return(nil, errors.New("unavailable")).Once()

	inbox := cart.NewInbox()
	c := cart.NewContainer(cart.Options{Carts: remote, Notifier: inbox})
	c.Settle(ctx, alice)

	assert.Empty(t, c.Items())
	assert.False(t, c.Loading())
	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Cart Error", notes[0].Title)
	assert.Equal(t, cart.VariantDestructive, notes[0].Variant)
	remote.AssertExpectations(t)
}

func TestContainer_MergeFailureKeepsBlob(t *testing.T) {
	ctx := t.Context()
	storage := cart.NewMemoryStorage()
	require.NoError(t, storage.Set(cart.LocalCartStorageKey, `[{"id":"A","quantity":1}]`))

	remote := new(MockCartRepository)
	remote.On("List", mock.Anything, alice.UID).Return([]models.CartItem{}, nil).Once()
	remote.On("Merge", mock.Anything, alice.UID, mock.Anything).Return(errors.New("aborted")).Once()

	c := cart.NewContainer(cart.Options{Carts: remote, Storage: storage})
	c.Settle(ctx, alice)

	assert.Empty(t, c.Items())
	_, ok, err := storage.Get(cart.LocalCartStorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	remote.AssertExpectations(t)
}

func TestContainer_RemoteWriteFailureIsNotRolledBack(t *testing.T) {
	ctx := t.Context()
	remote := new(MockCartRepository)
	remote.On("List", mock.Anything, alice.UID).Return([]models.CartItem{}, nil).Once()
	remote.On("Upsert", mock.Anything, alice.UID, mock.Anything).Return(errors.New("offline")).Once()

	c := cart.NewContainer(cart.Options{Carts: remote})
	c.Settle(ctx, alice)
	c.AddToCart(mug, 2)
	require.NoError(t, c.Flush(ctx))

	require.Len(t, c.Items(), 1)
	assert.Equal(t, 2, c.Items()[0].Quantity)
	remote.AssertExpectations(t)
}

func TestTotal_RoundsToCents(t *testing.T) {
	items := []models.CartItem{
		{ID: "a", Price: 0.1, Quantity: 3},
		{ID: "b", Price: 19.99, Quantity: 2},
	}
	assert.Equal(t, 40.28, cart.Total(items))
	assert.Equal(t, 5, cart.ItemCount(items))
	assert.Equal(t, 0.0, cart.Total(nil))
}
