package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// MockCredentialRepository is an in-memory implementation of CredentialRepository.
type MockCredentialRepository struct {
	byUID   map[string]models.Credential
	mu      sync.RWMutex
	metrics *metrics.AppMetrics
}

// NewMockCredentialRepository creates a new instance of MockCredentialRepository.
func NewMockCredentialRepository(m *metrics.AppMetrics) *MockCredentialRepository {
	return &MockCredentialRepository{
		byUID:   make(map[string]models.Credential),
		metrics: m,
	}
}

func (r *MockCredentialRepository) Create(ctx context.Context, cred *models.Credential) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "create", "credentials")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	cred.Email = normalizeEmail(cred.Email)
	for _, existing := range r.byUID {
		if existing.Email == cred.Email {
			return ErrConflict
		}
	}
	if cred.UID == "" {
		cred.UID = uuid.New().String()
	}
	cred.CreatedAt = time.Now().UTC()
	r.byUID[cred.UID] = *cred
	return nil
}

func (r *MockCredentialRepository) GetByEmail(ctx context.Context, email string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendMemory, "get_by_email", "credentials")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	for _, c := range r.byUID {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MockCredentialRepository) GetByUID(ctx context.Context, uid string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendMemory, "get", "credentials")(&err)
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUID[uid]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MockCredentialRepository) SetAdmin(ctx context.Context, uid string, admin bool) (err error) {
	defer observe(ctx, r.metrics, backendMemory, "set_admin", "credentials")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byUID[uid]
	if !ok {
		return ErrNotFound
	}
	c.Admin = admin
	r.byUID[uid] = c
	return nil
}

func (r *MockCredentialRepository) BumpGeneration(ctx context.Context, uid string) (_ int, err error) {
	defer observe(ctx, r.metrics, backendMemory, "bump_generation", "credentials")(&err)
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byUID[uid]
	if !ok {
		return 0, ErrNotFound
	}
	c.TokenGeneration++
	r.byUID[uid] = c
	return c.TokenGeneration, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
