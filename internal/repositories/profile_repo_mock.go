package repositories

import (
	"context"
	"sync"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// MockProfileRepository is an in-memory implementation of ProfileRepository.
type MockProfileRepository struct {
	profiles map[string]models.UserProfile
	mu       sync.RWMutex
	metrics  *metrics.AppMetrics
}

// NewMockProfileRepository creates a new instance of MockProfileRepository.
func NewMockProfileRepository(m *metrics.AppMetrics) *MockProfileRepository {
	return &MockProfileRepository{
		profiles: make(map[string]models.UserProfile),
		metrics:  m,
	}
}

func (r *MockProfileRepository) Get(ctx context.Context, uid string) (_ *models.UserProfile, err error) {
	defer observe(ctx, r.metrics, backendMemory, "get", "users")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MockProfileRepository) Set(ctx context.Context, profile *models.UserProfile) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "set", "users")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.UID] = *profile
	return nil
}

func (r *MockProfileRepository) Merge(ctx context.Context, uid string, update models.ProfileUpdate) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "merge", "users")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[uid]
	if !ok {
		p = models.UserProfile{UID: uid}
	}
	update.Apply(&p)
	r.profiles[uid] = p
	return nil
}
