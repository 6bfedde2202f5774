package cart

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"shopwave/internal/identity"
	"shopwave/internal/metrics"
	"shopwave/internal/repositories"
)

// Session is the server-side state of one browser session: its identity, its cart
// and the notifications not yet handed to the client.
type Session struct {
	ID       string
	Identity *identity.Session
	Cart     *Container
	Inbox    *Inbox

	settleMu sync.Mutex
	lastSeen time.Time
}

// Resolve settles the session identity to user and reloads the cart when the
// identity changed.
func (s *Session) Resolve(ctx context.Context, user *identity.User) {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	s.Identity.Begin()
	if s.Identity.Resolve(user) {
		s.Cart.Settle(ctx, user)
	}
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Carts   repositories.CartRepository
	Storage StorageFactory
	TTL     time.Duration
	Metrics *metrics.AppMetrics
}

// Manager owns the sessions of the process and evicts idle ones.
type Manager struct {
	carts   repositories.CartRepository
	storage StorageFactory
	ttl     time.Duration
	metrics *metrics.AppMetrics

	mu       sync.Mutex
	sessions map[string]*Session

	stop chan struct{}
	done chan struct{}
}

func NewManager(opts ManagerOptions) *Manager {
	storage := opts.Storage
	if storage == nil {
		storage = MemoryStorageFactory()
	}
	m := &Manager{
		carts:    opts.Carts,
		storage:  storage,
		ttl:      opts.TTL,
		metrics:  opts.Metrics,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if m.ttl > 0 {
		go m.janitor()
	} else {
		close(m.done)
	}
	return m
}

// Acquire returns the session for id, creating it on first use, and resolves its
// identity to user.
func (m *Manager) Acquire(ctx context.Context, id string, user *identity.User) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		id = strings.Clone(id)
		storage, err := m.storage(id)
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		inbox := NewInbox()
		s = &Session{
			ID:       id,
			Identity: identity.NewSession(),
			Inbox:    inbox,
			Cart: NewContainer(Options{
				Carts:    m.carts,
				Storage:  storage,
				Notifier: inbox,
				Metrics:  m.metrics,
			}),
		}
		m.sessions[id] = s
	}
	s.lastSeen = time.Now()
	m.mu.Unlock()

	s.Resolve(ctx, user)
	return s, nil
}

// Get returns the session for id without touching it.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) janitor() {
	defer close(m.done)
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Evict(time.Now())
		case <-m.stop:
			return
		}
	}
}

// Evict drops sessions idle for longer than the TTL as of now, after their
// pending cart writes drain.
func (m *Manager) Evict(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.Cart.Close(ctx); err != nil {
			log.Printf("Session %s closed with pending cart writes: %v", s.ID, err)
		}
		cancel()
	}
	return len(idle)
}

// Close stops eviction and closes every session, waiting for queued writes until
// ctx is done.
func (m *Manager) Close(ctx context.Context) error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Cart.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
