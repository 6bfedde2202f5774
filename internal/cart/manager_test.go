package cart_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

func TestManager_AcquireSettlesOnIdentityChange(t *testing.T) {
	ctx := t.Context()
	remote := repositories.NewMockCartRepository(nil)
	require.NoError(t, remote.Upsert(ctx, alice.UID, models.CartItem{ID: "A", Quantity: 2}))

	m := cart.NewManager(cart.ManagerOptions{Carts: remote})
	defer m.Close(ctx)

	s, err := m.Acquire(ctx, "sid-1", nil)
	require.NoError(t, err)
	assert.Equal(t, identity.StateAnonymous, s.Identity.State())
	s.Cart.AddToCart(mug, 1)
	s.Inbox.Drain()

	// same identity: the cart is not reloaded
	again, err := m.Acquire(ctx, "sid-1", nil)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Len(t, again.Cart.Items(), 1)

	_, err = m.Acquire(ctx, "sid-1", alice)
	require.NoError(t, err)
	assert.Equal(t, identity.StateAuthenticated, s.Identity.State())

	items := s.Cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, "p-mug", items[1].ID)
	assert.Equal(t, "Cart Synced", s.Inbox.Drain()[0].Title)
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	ctx := t.Context()
	m := cart.NewManager(cart.ManagerOptions{
		Carts: repositories.NewMockCartRepository(nil),
		TTL:   time.Hour,
	})
	defer m.Close(ctx)

	_, err := m.Acquire(ctx, "sid-1", nil)
	require.NoError(t, err)
	_, err = m.Acquire(ctx, "sid-2", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, 0, m.Evict(time.Now()))
	assert.Equal(t, 2, m.Evict(time.Now().Add(2*time.Hour)))

	_, ok := m.Get("sid-1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}
