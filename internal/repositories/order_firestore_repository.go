package repositories

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// FirestoreOrderRepository implements OrderRepository on the orders collection.
type FirestoreOrderRepository struct {
	Client  *firestore.Client
	metrics *metrics.AppMetrics
}

func NewFirestoreOrderRepository(client *firestore.Client, m *metrics.AppMetrics) *FirestoreOrderRepository {
	return &FirestoreOrderRepository{Client: client, metrics: m}
}

func (r *FirestoreOrderRepository) col() *firestore.CollectionRef {
	return r.Client.Collection("orders")
}

func (r *FirestoreOrderRepository) ready() error {
	if r == nil || r.Client == nil {
		return errors.New("order_repository_fs: firestore client is nil")
	}
	return nil
}

// Create writes the order with a server timestamp and reads it back.
func (r *FirestoreOrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "create", "orders")(&err)
	if err := r.ready(); err != nil {
		return err
	}

	ref := r.col().NewDoc()
	if _, err := ref.Create(ctx, orderDocFromModel(*order)); err != nil {
		return fmt.Errorf("order_repository_fs: create failed: %w", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return fmt.Errorf("order_repository_fs: reload after create failed: %w", err)
	}
	created, err := orderFromSnapshot(snap)
	if err != nil {
		return err
	}
	*order = created
	return nil
}

func (r *FirestoreOrderRepository) ListByUser(ctx context.Context, userID string) (_ []models.Order, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "list", "orders")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	snaps, err := r.col().
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("order_repository_fs: list failed: %w", err)
	}
	orders := make([]models.Order, 0, len(snaps))
	for _, s := range snaps {
		o, err := orderFromSnapshot(s)
		if err != nil {
			return nil, fmt.Errorf("order_repository_fs: decode %s: %w", s.Ref.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GetByID returns (nil, nil) if not found (nil policy).
func (r *FirestoreOrderRepository) GetByID(ctx context.Context, id string) (_ *models.Order, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "get", "orders")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	o, err := orderFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
