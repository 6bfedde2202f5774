package identity

import "sync"

// State is the identity state of one browser session.
type State int

const (
	StateUnknown State = iota
	StateLoading
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session tracks unknown -> loading -> {anonymous, authenticated} for one browser
// session. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	state    State
	settled  State // last non-loading state
	user     *User
	resolved bool
}

func NewSession() *Session {
	return &Session{}
}

// Begin marks the identity as being resolved.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoading
}

// Resolve settles the identity to user (nil means anonymous) and reports whether
// the settled identity changed. The first resolution always counts as a change.
func (s *Session) Resolve(user *User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := StateAnonymous
	if user != nil {
		next = StateAuthenticated
	}
	changed := !s.resolved || uidOf(s.user) != uidOf(user)

	s.state = next
	s.settled = next
	s.resolved = true
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	return changed
}

// Abort leaves the loading state without changing the identity.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.settled
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Loading() bool {
	return s.State() == StateLoading
}

// User returns a copy of the current user, or nil when anonymous.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

func uidOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.UID
}
