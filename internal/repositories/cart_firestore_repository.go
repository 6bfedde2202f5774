package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// firestoreBatchLimit stays under the 500-write cap of a single commit.
const firestoreBatchLimit = 400

// FirestoreCartRepository implements CartRepository on users/{uid}/cart/{productId}.
type FirestoreCartRepository struct {
	Client  *firestore.Client
	metrics *metrics.AppMetrics
}

func NewFirestoreCartRepository(client *firestore.Client, m *metrics.AppMetrics) *FirestoreCartRepository {
	return &FirestoreCartRepository{Client: client, metrics: m}
}

func (r *FirestoreCartRepository) col(userID string) (*firestore.CollectionRef, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("cart_repository_fs: firestore client is nil")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cart_repository_fs: userID is empty")
	}
	return r.Client.Collection("users").Doc(uid).Collection("cart"), nil
}

func (r *FirestoreCartRepository) List(ctx context.Context, userID string) (_ []models.CartItem, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "list", "cart")(&err)
	col, err := r.col(userID)
	if err != nil {
		return nil, err
	}

	snaps, err := col.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("cart_repository_fs: list failed: %w", err)
	}
	items := make([]models.CartItem, 0, len(snaps))
	for _, s := range snaps {
		var d cartItemDoc
		if err := s.DataTo(&d); err != nil {
			return nil, fmt.Errorf("cart_repository_fs: decode %s: %w", s.Ref.ID, err)
		}
		// docId is the source of truth
		d.ID = s.Ref.ID
		if d.Quantity < 1 {
			continue
		}
		items = append(items, d.toModel())
	}
	return items, nil
}

// Upsert overwrites the row document (simple & predictable).
func (r *FirestoreCartRepository) Upsert(ctx context.Context, userID string, item models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "upsert", "cart")(&err)
	if err := validCartItem(item); err != nil {
		return err
	}
	col, err := r.col(userID)
	if err != nil {
		return err
	}

	if _, err := col.Doc(item.ID).Set(ctx, cartItemDocFromModel(item)); err != nil {
		return fmt.Errorf("cart_repository_fs: upsert %s failed: %w", item.ID, err)
	}
	return nil
}

// Delete is idempotent: Firestore deletes of missing documents succeed.
func (r *FirestoreCartRepository) Delete(ctx context.Context, userID, productID string) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "delete", "cart")(&err)
	col, err := r.col(userID)
	if err != nil {
		return err
	}

	if _, err := col.Doc(productID).Delete(ctx); err != nil {
		return fmt.Errorf("cart_repository_fs: delete %s failed: %w", productID, err)
	}
	return nil
}

// Clear deletes every row with batched writes.
func (r *FirestoreCartRepository) Clear(ctx context.Context, userID string) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "clear", "cart")(&err)
	col, err := r.col(userID)
	if err != nil {
		return err
	}

	refs, err := col.DocumentRefs(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("cart_repository_fs: clear listing failed: %w", err)
	}

	batch := r.Client.Batch()
	count := 0
	for _, ref := range refs {
		batch.Delete(ref)
		count++
		if count == firestoreBatchLimit {
			if _, err := batch.Commit(ctx); err != nil {
				return fmt.Errorf("cart_repository_fs: clear commit failed: %w", err)
			}
			batch = r.Client.Batch()
			count = 0
		}
	}
	if count > 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("cart_repository_fs: clear commit failed: %w", err)
		}
	}
	return nil
}

// Merge sums quantities into existing rows and inserts the rest, atomically.
func (r *FirestoreCartRepository) Merge(ctx context.Context, userID string, items []models.CartItem) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "merge", "cart")(&err)
	for _, item := range items {
		if err := validCartItem(item); err != nil {
			return err
		}
	}
	col, err := r.col(userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	// one write per document: fold duplicate ids first
	folded := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		folded = mergeRow(folded, item)
	}
	refs := make([]*firestore.DocumentRef, 0, len(folded))
	for _, item := range folded {
		refs = append(refs, col.Doc(item.ID))
	}

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			item := folded[i]
			if snap.Exists() {
				var existing cartItemDoc
				if err := snap.DataTo(&existing); err != nil {
					return err
				}
				err = tx.Update(refs[i], []firestore.Update{
					{Path: "quantity", Value: existing.Quantity + item.Quantity},
				})
			} else {
				err = tx.Set(refs[i], cartItemDocFromModel(item))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cart_repository_fs: merge failed: %w", err)
	}
	return nil
}
