package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL matches a week of browser inactivity.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is one logged-in browser.
type Session struct {
	Token    string
	Username string
	Expires  time.Time
}

// Sessions is an in-memory session registry. Sessions do not survive a
// restart; the author just logs in again.
type Sessions struct {
	mu      sync.Mutex
	byToken map[string]Session
	ttl     time.Duration
	now     func() time.Time
}

// NewSessions creates a registry. A non-positive ttl uses
// [DefaultSessionTTL].
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Sessions{
		byToken: make(map[string]Session),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a new session for username and returns it.
func (s *Sessions) Create(username string) Session {
	session := Session{
		Token:    uuid.NewString(),
		Username: username,
		Expires:  s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.byToken[session.Token] = session
	s.mu.Unlock()

	return session
}

// Lookup returns the live session for token. Expired sessions are removed
// on lookup.
func (s *Sessions) Lookup(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok {
		return Session{}, false
	}

	if s.now().After(session.Expires) {
		delete(s.byToken, token)

		return Session{}, false
	}

	return session, true
}

// Delete removes the session for token, reporting whether it existed.
func (s *Sessions) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byToken[token]
	delete(s.byToken, token)

	return ok
}
