package repositories

import (
	"context"
	"sort"
	"time"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

const (
	backendMemory    = "memory"
	backendGORM      = "gorm"
	backendFirestore = "firestore"
)

// observe starts timing a store operation; call the returned func with the
// operation's error once it finishes.
func observe(ctx context.Context, m *metrics.AppMetrics, backend, operation, collection string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		m.RecordStoreOp(ctx, backend, operation, collection, start, err)
	}
}

type keyedProduct struct {
	key     string
	product models.Product
}

// collectSearchHits orders hits by key, keeps the first hit of each product and
// stops at limit.
func collectSearchHits(hits []keyedProduct, limit int) []models.Product {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].key != hits[j].key {
			return hits[i].key < hits[j].key
		}
		return hits[i].product.ID < hits[j].product.ID
	})
	out := []models.Product{}
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.product.ID] {
			continue
		}
		seen[h.product.ID] = true
		out = append(out, h.product)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func sortByName(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
}

func cloneProduct(p models.Product) models.Product {
	if p.Images != nil {
		p.Images = append([]string{}, p.Images...)
	}
	return p
}
