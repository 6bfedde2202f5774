package repositories

import (
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"gorm.io/gorm"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

var (
	// ErrNotFound is returned by writes addressed at a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidQuantity is returned for cart rows with a quantity below 1.
	ErrInvalidQuantity = errors.New("cart quantity must be at least 1")
)

// Store bundles the repositories of one backend.
type Store struct {
	Backend     string
	Products    ProductRepository
	Profiles    ProfileRepository
	Carts       CartRepository
	Orders      OrderRepository
	Credentials CredentialRepository
}

func normalizeTerm(term string) string {
	return models.LowercaseName(strings.TrimSpace(term))
}

func validCartItem(item models.CartItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return errors.New("cart item id is empty")
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// NewMockStore returns a Store backed by process memory.
func NewMockStore(m *metrics.AppMetrics) *Store {
	return &Store{
		Backend:     backendMemory,
		Products:    NewMockProductRepository(m),
		Profiles:    NewMockProfileRepository(m),
		Carts:       NewMockCartRepository(m),
		Orders:      NewMockOrderRepository(m),
		Credentials: NewMockCredentialRepository(m),
	}
}

// NewGORMStore returns a Store backed by a GORM database. The tables listed by
// GORMModels must already be migrated.
func NewGORMStore(db *gorm.DB, m *metrics.AppMetrics) *Store {
	return &Store{
		Backend:     backendGORM,
		Products:    NewGORMProductRepository(db, m),
		Profiles:    NewGORMProfileRepository(db, m),
		Carts:       NewGORMCartRepository(db, m),
		Orders:      NewGORMOrderRepository(db, m),
		Credentials: NewGORMCredentialRepository(db, m),
	}
}

// NewFirestoreStore returns a Store backed by Firestore.
func NewFirestoreStore(client *firestore.Client, m *metrics.AppMetrics) *Store {
	return &Store{
		Backend:     backendFirestore,
		Products:    NewFirestoreProductRepository(client, m),
		Profiles:    NewFirestoreProfileRepository(client, m),
		Carts:       NewFirestoreCartRepository(client, m),
		Orders:      NewFirestoreOrderRepository(client, m),
		Credentials: NewFirestoreCredentialRepository(client, m),
	}
}
