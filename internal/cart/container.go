package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"shopwave/internal/identity"
	"shopwave/internal/metrics"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

// Options wires a Container to its collaborators.
type Options struct {
	Carts    repositories.CartRepository
	Storage  LocalStorage
	Notifier Notifier
	Metrics  *metrics.AppMetrics
}

// Container is the cart of one browser session. Local state changes synchronously;
// remote writes go through a WriteQueue and are never rolled back on failure.
type Container struct {
	opMu sync.Mutex // serializes public operations; Settle holds it throughout

	mu      sync.RWMutex
	items   []models.CartItem
	loading bool
	user    *identity.User

	carts    repositories.CartRepository
	storage  LocalStorage
	notifier Notifier
	metrics  *metrics.AppMetrics
	queue    *WriteQueue
}

func NewContainer(opts Options) *Container {
	storage := opts.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewInbox()
	}
	return &Container{
		items:    []models.CartItem{},
		loading:  true,
		carts:    opts.Carts,
		storage:  storage,
		notifier: notifier,
		metrics:  opts.Metrics,
		queue:    NewWriteQueue(),
	}
}

// Settle loads the cart for a freshly resolved identity. A guest adopts the local
// blob. A signed-in user gets the remote cart, with a non-empty local blob merged
// into it first. Any failure leaves an empty cart.
func (c *Container) Settle(ctx context.Context, user *identity.User) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	// writes queued under the previous identity land before the switch
	if err := c.queue.Flush(ctx); err != nil {
		log.Printf("Cart flush before settle interrupted: %v", err)
	}

	c.mu.Lock()
	c.loading = true
	c.user = copyUser(user)
	c.mu.Unlock()

	items, err := c.load(ctx, user)
	if err != nil {
		log.Printf("Error loading cart: %v", err)
		c.notifier.Notify(Failure("Cart Error", "Could not load your cart."))
		items = []models.CartItem{}
	}

	c.mu.Lock()
	c.items = items
	c.loading = false
	c.mu.Unlock()
	c.persist()
}

func (c *Container) load(ctx context.Context, user *identity.User) ([]models.CartItem, error) {
	local, err := c.readLocal()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return local, nil
	}

	remote, err := c.carts.List(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("read remote cart: %w", err)
	}
	if len(local) == 0 {
		return remote, nil
	}

	if err := c.carts.Merge(ctx, user.UID, local); err != nil {
		return nil, fmt.Errorf("merge local cart: %w", err)
	}
	if err := c.storage.Remove(LocalCartStorageKey); err != nil {
		return nil, fmt.Errorf("clear local cart: %w", err)
	}
	merged, err := c.carts.List(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("re-read merged cart: %w", err)
	}
	c.metrics.RecordCartMerge(ctx, len(local))
	c.notifier.Notify(Info("Cart Synced", "Your local cart has been merged with your account."))
	return merged, nil
}

func (c *Container) readLocal() ([]models.CartItem, error) {
	blob, ok, err := c.storage.Get(LocalCartStorageKey)
	if err != nil {
		return nil, fmt.Errorf("read local cart: %w", err)
	}
	items := []models.CartItem{}
	if !ok || blob == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, fmt.Errorf("decode local cart: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// persist writes the local blob while in guest mode and not loading.
func (c *Container) persist() {
	c.mu.RLock()
	guest, loading := c.user == nil, c.loading
	items := append([]models.CartItem{}, c.items...)
	c.mu.RUnlock()
	if !guest || loading {
		return
	}

	blob, err := json.Marshal(items)
	if err != nil {
		log.Printf("Error encoding local cart: %v", err)
		return
	}
	if err := c.storage.Set(LocalCartStorageKey, string(blob)); err != nil {
		log.Printf("Error saving local cart: %v", err)
	}
}

// AddToCart accumulates quantity on an existing row, or inserts a snapshot of
// product. Quantities below 1 count as 1.
func (c *Container) AddToCart(product models.Product, quantity int) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	row := models.CartItemFromProduct(product, quantity)
	found := false
	for i := range c.items {
		if c.items[i].ID == product.ID {
			row.Quantity = c.items[i].Quantity + quantity
			c.items[i] = row
			found = true
			break
		}
	}
	if !found {
		c.items = append(c.items, row)
	}
	user := copyUser(c.user)
	c.mu.Unlock()

	if user != nil {
		c.queue.Row(row.ID, "upsert", func(ctx context.Context) error {
			return c.carts.Upsert(ctx, user.UID, row)
		})
	}
	c.persist()
	c.metrics.RecordCartMutation(context.Background(), "add", user != nil)
	c.notifier.Notify(Info("Added to cart", fmt.Sprintf("%s has been added to your cart.", product.Name)))
}

// RemoveFromCart drops the row for productID. Removing a missing row is harmless.
func (c *Container) RemoveFromCart(productID string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.remove(productID)
}

func (c *Container) remove(productID string) {
	c.mu.Lock()
	kept := make([]models.CartItem, 0, len(c.items))
	for _, it := range c.items {
		if it.ID != productID {
			kept = append(kept, it)
		}
	}
	c.items = kept
	user := copyUser(c.user)
	c.mu.Unlock()

	if user != nil {
		c.queue.Row(productID, "delete", func(ctx context.Context) error {
			return c.carts.Delete(ctx, user.UID, productID)
		})
	}
	c.persist()
	c.metrics.RecordCartMutation(context.Background(), "remove", user != nil)
	c.notifier.Notify(Info("Removed from cart", "Item has been removed from your cart."))
}

// UpdateQuantity sets the quantity of an existing row; n <= 0 removes it.
func (c *Container) UpdateQuantity(productID string, n int) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if n <= 0 {
		c.remove(productID)
		return
	}

	c.mu.Lock()
	var row *models.CartItem
	for i := range c.items {
		if c.items[i].ID == productID {
			c.items[i].Quantity = n
			updated := c.items[i]
			row = &updated
			break
		}
	}
	user := copyUser(c.user)
	c.mu.Unlock()

	if row == nil {
		return
	}
	if user != nil {
		item := *row
		c.queue.Row(productID, "upsert", func(ctx context.Context) error {
			return c.carts.Upsert(ctx, user.UID, item)
		})
	}
	c.persist()
	c.metrics.RecordCartMutation(context.Background(), "update", user != nil)
}

// ClearCart empties the cart and, when signed in, the remote rows in one batch.
func (c *Container) ClearCart() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.items = []models.CartItem{}
	user := copyUser(c.user)
	c.mu.Unlock()

	if user != nil {
		c.queue.Barrier("clear", func(ctx context.Context) error {
			return c.carts.Clear(ctx, user.UID)
		})
	} else if err := c.storage.Remove(LocalCartStorageKey); err != nil {
		log.Printf("Error removing local cart: %v", err)
	}
	c.persist()
	c.metrics.RecordCartMutation(context.Background(), "clear", user != nil)
	c.notifier.Notify(Info("Cart cleared", "All items have been removed from your cart."))
}

// Items returns a copy of the rows in insertion order.
func (c *Container) Items() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.CartItem{}, c.items...)
}

func (c *Container) Total() float64 {
	return Total(c.Items())
}

func (c *Container) ItemCount() int {
	return ItemCount(c.Items())
}

func (c *Container) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// User returns the identity the cart was last settled for.
func (c *Container) User() *identity.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyUser(c.user)
}

// Flush waits for queued remote writes.
func (c *Container) Flush(ctx context.Context) error {
	return c.queue.Flush(ctx)
}

// Close waits for queued writes until ctx is done and cancels the rest.
func (c *Container) Close(ctx context.Context) error {
	return c.queue.Close(ctx)
}

func copyUser(u *identity.User) *identity.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
