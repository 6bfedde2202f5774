package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// FirestoreProductRepository implements ProductRepository on Firestore.
//
// Collections:
//   - products: one document per product, auto-generated id
//   - product_search_keys: {key, productId}, one document per search key
type FirestoreProductRepository struct {
	Client  *firestore.Client
	metrics *metrics.AppMetrics
}

func NewFirestoreProductRepository(client *firestore.Client, m *metrics.AppMetrics) *FirestoreProductRepository {
	return &FirestoreProductRepository{Client: client, metrics: m}
}

func (r *FirestoreProductRepository) col() *firestore.CollectionRef {
	return r.Client.Collection("products")
}

func (r *FirestoreProductRepository) keysCol() *firestore.CollectionRef {
	return r.Client.Collection("product_search_keys")
}

func (r *FirestoreProductRepository) ready() error {
	if r == nil || r.Client == nil {
		return errors.New("product_repository_fs: firestore client is nil")
	}
	return nil
}

func (r *FirestoreProductRepository) List(ctx context.Context, filter models.ProductFilter, limit int) (_ []models.Product, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "list", "products")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	q := r.col().Query
	if filter.Featured != nil {
		q = q.Where("featured", "==", *filter.Featured)
	}
	if filter.Category != "" {
		q = q.Where("category", "==", filter.Category)
	}
	if filter.Condition != "" {
		q = q.Where("condition", "==", string(filter.Condition))
	}
	// filters plus an order on another field need a composite index
	q = q.OrderBy("name", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("product_repository_fs: list failed: %w", err)
	}
	return productsFromSnapshots(snaps)
}

func (r *FirestoreProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, models.ProductFilter{}, 0)
}

// GetByID returns (nil, nil) if not found (nil policy).
func (r *FirestoreProductRepository) GetByID(ctx context.Context, id string) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "get", "products")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	p, err := productFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create writes the product and its search keys in one batch.
func (r *FirestoreProductRepository) Create(ctx context.Context, product *models.Product) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "create", "products")(&err)
	if err := r.ready(); err != nil {
		return err
	}

	ref := r.col().NewDoc()
	if product.ID != "" {
		ref = r.col().Doc(product.ID)
	}
	product.NameLowercase = models.LowercaseName(product.Name)
	product.Condition = product.Condition.OrDefault()

	batch := r.Client.Batch()
	batch.Create(ref, productDocFromModel(*product))
	r.setSearchKeys(batch, ref.ID, product.Name)
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("product_repository_fs: create failed: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return fmt.Errorf("product_repository_fs: reload after create failed: %w", err)
	}
	created, err := productFromSnapshot(snap)
	if err != nil {
		return err
	}
	*product = created
	return nil
}

// Update applies a partial write in a transaction; the search keys are replaced
// only when the name changes.
func (r *FirestoreProductRepository) Update(ctx context.Context, id string, update models.ProductUpdate) (_ *models.Product, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "update", "products")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	ref := r.col().Doc(id)
	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var oldKeys []*firestore.DocumentSnapshot
		if update.Name != nil {
			keys, err := tx.Documents(r.keysCol().Where("productId", "==", id)).GetAll()
			if err != nil {
				return err
			}
			oldKeys = keys
		}

		// reads are done; writes follow
		if err := tx.Update(ref, productUpdates(update)); err != nil {
			return err
		}
		if update.Name != nil {
			newKeys := models.SearchKeys(*update.Name)
			// a document may only be written once per transaction
			for _, k := range oldKeys {
				if i := searchKeyIndex(k.Ref.ID, id); i >= 0 && i < len(newKeys) {
					continue
				}
				if err := tx.Delete(k.Ref); err != nil {
					return err
				}
			}
			for i, key := range newKeys {
				if err := tx.Set(r.keysCol().Doc(searchKeyDocID(id, i)), searchKeyDoc{Key: key, ProductID: id}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("product_repository_fs: update %s failed: %w", id, err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("product_repository_fs: reload after update failed: %w", err)
	}
	updated, err := productFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *FirestoreProductRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "delete", "products")(&err)
	if err := r.ready(); err != nil {
		return err
	}

	ref := r.col().Doc(id)
	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		keys, err := tx.Documents(r.keysCol().Where("productId", "==", id)).GetAll()
		if err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k.Ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("product_repository_fs: delete %s failed: %w", id, err)
	}
	return nil
}

// SearchByPrefix runs the range query key >= term && key < term+SearchKeyCeiling.
func (r *FirestoreProductRepository) SearchByPrefix(ctx context.Context, term string, limit int) (_ []models.Product, err error) {
	term = normalizeTerm(term)
	if term == "" {
		return []models.Product{}, nil
	}
	defer observe(ctx, r.metrics, backendFirestore, "search", "products")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	keySnaps, err := r.keysCol().
		Where("key", ">=", term).
		Where("key", "<", term+models.SearchKeyCeiling).
		OrderBy("key", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("product_repository_fs: search failed: %w", err)
	}

	var keys []searchKeyDoc
	var refs []*firestore.DocumentRef
	seen := map[string]bool{}
	for _, s := range keySnaps {
		var k searchKeyDoc
		if err := s.DataTo(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
		if !seen[k.ProductID] {
			seen[k.ProductID] = true
			refs = append(refs, r.col().Doc(k.ProductID))
		}
		if limit > 0 && len(refs) == limit {
			break
		}
	}
	if len(refs) == 0 {
		return []models.Product{}, nil
	}

	snaps, err := r.Client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("product_repository_fs: loading search hits failed: %w", err)
	}
	byID := make(map[string]models.Product, len(snaps))
	for _, s := range snaps {
		if !s.Exists() {
			continue
		}
		p, err := productFromSnapshot(s)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}

	hits := make([]keyedProduct, 0, len(keys))
	for _, k := range keys {
		if p, ok := byID[k.ProductID]; ok {
			hits = append(hits, keyedProduct{key: k.Key, product: p})
		}
	}
	return collectSearchHits(hits, limit), nil
}

func (r *FirestoreProductRepository) setSearchKeys(batch *firestore.WriteBatch, productID, name string) {
	for i, key := range models.SearchKeys(name) {
		batch.Set(r.keysCol().Doc(searchKeyDocID(productID, i)), searchKeyDoc{Key: key, ProductID: productID})
	}
}

func searchKeyDocID(productID string, i int) string {
	return fmt.Sprintf("%s_%d", productID, i)
}

// searchKeyIndex recovers i from a document id built by searchKeyDocID, or -1.
func searchKeyIndex(docID, productID string) int {
	var i int
	if _, err := fmt.Sscanf(strings.TrimPrefix(docID, productID+"_"), "%d", &i); err != nil {
		return -1
	}
	return i
}

func productsFromSnapshots(snaps []*firestore.DocumentSnapshot) ([]models.Product, error) {
	products := make([]models.Product, 0, len(snaps))
	for _, s := range snaps {
		p, err := productFromSnapshot(s)
		if err != nil {
			return nil, fmt.Errorf("product_repository_fs: decode %s: %w", s.Ref.ID, err)
		}
		products = append(products, p)
	}
	return products, nil
}
