package repositories_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

type storeFactory func(t *testing.T) *repositories.Store

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(repositories.GORMModels()...))
	return db
}

func backends(t *testing.T) map[string]storeFactory {
	factories := map[string]storeFactory{
		"memory": func(t *testing.T) *repositories.Store {
			return repositories.NewMockStore(nil)
		},
		"gorm-sqlite": func(t *testing.T) *repositories.Store {
			return repositories.NewGORMStore(openSQLite(t), nil)
		},
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		factories["firestore"] = func(t *testing.T) *repositories.Store {
			// the emulator keeps projects apart, so each test gets a clean database
			client, err := firestore.NewClient(context.Background(), "shopwave-"+uuid.New().String()[:8])
			require.NoError(t, err)
			t.Cleanup(func() { client.Close() })
			return repositories.NewFirestoreStore(client, nil)
		}
	}
	return factories
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store *repositories.Store)) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func createProduct(t *testing.T, repo repositories.ProductRepository, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &p))
	return p
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		created := createProduct(t, store.Products, models.Product{
			Name:        "Test Mug",
			Description: "A ceramic mug for tests",
			Price:       12.5,
			ImageURL:    "https://example.com/mug.png",
			Category:    "Kitchen",
			Stock:       3,
		})

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "test mug", created.NameLowercase)
		assert.Equal(t, models.ConditionNew, created.Condition)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, []string{}, created.Images)

		got, err := store.Products.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Test Mug", got.Name)
		assert.Equal(t, 12.5, got.Price)
		assert.False(t, got.Featured)

		missing, err := store.Products.GetByID(ctx, "does-not-exist")
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestProductRepository_ListFiltersAndOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		createProduct(t, store.Products, models.Product{Name: "Zebra Lamp", Category: "Home", Featured: true, Price: 10})
		createProduct(t, store.Products, models.Product{Name: "Apple Crate", Category: "Home", Price: 5, Condition: models.ConditionUsed})
		createProduct(t, store.Products, models.Product{Name: "Mango Chair", Category: "Garden", Featured: true, Price: 20})

		all, err := store.Products.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple Crate", "Mango Chair", "Zebra Lamp"}, names(all))

		featured := true
		onlyFeatured, err := store.Products.List(ctx, models.ProductFilter{Featured: &featured}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mango Chair", "Zebra Lamp"}, names(onlyFeatured))

		used, err := store.Products.List(ctx, models.ProductFilter{Condition: models.ConditionUsed}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple Crate"}, names(used))

		limited, err := store.Products.List(ctx, models.ProductFilter{Category: "Home"}, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple Crate"}, names(limited))
	})
}

func TestProductRepository_PartialUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		created := createProduct(t, store.Products, models.Product{Name: "Old Name", Description: "unchanged text", Price: 10})

		price := 15.0
		updated, err := store.Products.Update(ctx, created.ID, models.ProductUpdate{Price: &price})
		require.NoError(t, err)
		assert.Equal(t, 15.0, updated.Price)
		assert.Equal(t, "Old Name", updated.Name)
		assert.Equal(t, "old name", updated.NameLowercase)
		assert.Equal(t, "unchanged text", updated.Description)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		name := "Shiny New Name"
		updated, err = store.Products.Update(ctx, created.ID, models.ProductUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "shiny new name", updated.NameLowercase)

		hits, err := store.Products.SearchByPrefix(ctx, "new", 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"Shiny New Name"}, names(hits))
		stale, err := store.Products.SearchByPrefix(ctx, "old", 20)
		require.NoError(t, err)
		assert.Empty(t, stale)

		_, err = store.Products.Update(ctx, "missing", models.ProductUpdate{Price: &price})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestProductRepository_Delete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		created := createProduct(t, store.Products, models.Product{Name: "Doomed Item"})

		require.NoError(t, store.Products.Delete(ctx, created.ID))
		got, err := store.Products.GetByID(ctx, created.ID)
		assert.NoError(t, err)
		assert.Nil(t, got)

		hits, err := store.Products.SearchByPrefix(ctx, "doomed", 20)
		require.NoError(t, err)
		assert.Empty(t, hits)

		assert.ErrorIs(t, store.Products.Delete(ctx, created.ID), repositories.ErrNotFound)
	})
}

func TestProductRepository_SearchByPrefix(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		createProduct(t, store.Products, models.Product{Name: "Classic Leather Wallet"})
		createProduct(t, store.Products, models.Product{Name: "Leather Leather Bag"})
		createProduct(t, store.Products, models.Product{Name: "Wall Clock"})

		hits, err := store.Products.SearchByPrefix(ctx, "wallet", 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"Classic Leather Wallet"}, names(hits))

		hits, err = store.Products.SearchByPrefix(ctx, "  WALL ", 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"Wall Clock", "Classic Leather Wallet"}, names(hits))

		// one row per product even when several of its keys match
		hits, err = store.Products.SearchByPrefix(ctx, "leather", 20)
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = store.Products.SearchByPrefix(ctx, "leather", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)

		hits, err = store.Products.SearchByPrefix(ctx, "   ", 20)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)

		hits, err = store.Products.SearchByPrefix(ctx, "zzz", 20)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestCartRepository(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		uid := "user-1"
		a := models.CartItem{ID: "prod-a", Name: "A", Price: 10, Quantity: 2}
		b := models.CartItem{ID: "prod-b", Name: "B", Price: 5, Quantity: 1}

		require.NoError(t, store.Carts.Upsert(ctx, uid, a))
		items, err := store.Carts.List(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []models.CartItem{a}, items)

		assert.ErrorIs(t, store.Carts.Upsert(ctx, uid, models.CartItem{ID: "prod-c", Quantity: 0}), repositories.ErrInvalidQuantity)

		// merge sums existing rows and inserts new ones
		require.NoError(t, store.Carts.Merge(ctx, uid, []models.CartItem{
			{ID: "prod-a", Name: "A", Price: 10, Quantity: 3},
			b,
		}))
		items, err = store.Carts.List(ctx, uid)
		require.NoError(t, err)
		quantities := map[string]int{}
		for _, it := range items {
			quantities[it.ID] = it.Quantity
		}
		assert.Equal(t, map[string]int{"prod-a": 5, "prod-b": 1}, quantities)

		require.NoError(t, store.Carts.Delete(ctx, uid, "prod-b"))
		require.NoError(t, store.Carts.Delete(ctx, uid, "prod-b"), "deleting twice is not an error")

		other, err := store.Carts.List(ctx, "user-2")
		require.NoError(t, err)
		assert.Empty(t, other)

		require.NoError(t, store.Carts.Clear(ctx, uid))
		items, err = store.Carts.List(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestProfileRepository(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()

		missing, err := store.Profiles.Get(ctx, "u-1")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, store.Profiles.Set(ctx, &models.UserProfile{UID: "u-1", Email: "a@example.com", DisplayName: "Ann"}))

		city := "Lisbon"
		empty := ""
		require.NoError(t, store.Profiles.Merge(ctx, "u-1", models.ProfileUpdate{City: &city, DisplayName: &empty}))

		got, err := store.Profiles.Get(ctx, "u-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "a@example.com", got.Email)
		assert.Equal(t, "Lisbon", got.City)
		assert.Equal(t, "", got.DisplayName)

		// merge creates the profile when it does not exist yet
		require.NoError(t, store.Profiles.Merge(ctx, "u-2", models.ProfileUpdate{City: &city}))
		created, err := store.Profiles.Get(ctx, "u-2")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "u-2", created.UID)
		assert.Equal(t, "Lisbon", created.City)
	})
}

func TestOrderRepository(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		first := &models.Order{
			UserID:      "u-1",
			Items:       []models.OrderItem{{ProductID: "p-1", Name: "Lamp", Quantity: 2, Price: 10}},
			TotalAmount: 20,
			Status:      models.OrderPending,
			ShippingAddress: models.ShippingAddress{
				FullName: "Ann Lee", Address: "1 Main St", City: "Porto", PostalCode: "4000", Country: "PT", Email: "ann@example.com",
			},
		}
		require.NoError(t, store.Orders.Create(ctx, first))
		assert.NotEmpty(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		time.Sleep(5 * time.Millisecond)
		second := &models.Order{UserID: "u-1", TotalAmount: 5, Status: models.OrderPending}
		require.NoError(t, store.Orders.Create(ctx, second))
		require.NoError(t, store.Orders.Create(ctx, &models.Order{UserID: "u-2", Status: models.OrderPending}))

		orders, err := store.Orders.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, second.ID, orders[0].ID, "newest first")
		assert.Equal(t, first.ID, orders[1].ID)

		got, err := store.Orders.GetByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.Items, got.Items)
		assert.Equal(t, first.ShippingAddress, got.ShippingAddress)
		assert.Equal(t, models.OrderPending, got.Status)

		missing, err := store.Orders.GetByID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestCredentialRepository(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *repositories.Store) {
		ctx := context.Background()
		cred := &models.Credential{Email: " Ann@Example.com ", PasswordHash: "hash", DisplayName: "Ann"}
		require.NoError(t, store.Credentials.Create(ctx, cred))
		assert.NotEmpty(t, cred.UID)
		assert.Equal(t, "ann@example.com", cred.Email)

		err := store.Credentials.Create(ctx, &models.Credential{Email: "ann@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, repositories.ErrConflict)

		got, err := store.Credentials.GetByEmail(ctx, "ANN@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cred.UID, got.UID)
		assert.False(t, got.Admin)

		require.NoError(t, store.Credentials.SetAdmin(ctx, cred.UID, true))
		gen, err := store.Credentials.BumpGeneration(ctx, cred.UID)
		require.NoError(t, err)
		assert.Equal(t, 1, gen)

		got, err = store.Credentials.GetByUID(ctx, cred.UID)
		require.NoError(t, err)
		assert.True(t, got.Admin)
		assert.Equal(t, 1, got.TokenGeneration)

		assert.ErrorIs(t, store.Credentials.SetAdmin(ctx, "ghost", true), repositories.ErrNotFound)
		_, err = store.Credentials.BumpGeneration(ctx, "ghost")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		none, err := store.Credentials.GetByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, none)
	})
}
