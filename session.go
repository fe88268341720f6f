package qbt

import (
	"sync"
	"time"
)

// Session is the local login state. A session token is held exactly when
// the client is logged in.
type Session struct {
	mu         sync.RWMutex
	token      string
	username   string
	loggedInAt time.Time
	expiresAt  time.Time

	now func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

func (s *Session) start(info LoginInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = info.SessionID
	s.username = info.Username
	s.loggedInAt = info.LoggedIn
	s.expiresAt = info.ExpiresAt
}

// rotate replaces the token of an open session. It reports whether the
// token changed; a logged out session or an empty sid is left alone.
func (s *Session) rotate(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || sid == "" || sid == s.token {
		return false
	}
	s.token = sid
	return true
}

// Clear forgets the token, username and expiry together.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.username = ""
	s.loggedInAt = time.Time{}
	s.expiresAt = time.Time{}
}

func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the session id, "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) LoggedInAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedInAt
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// IsExpired reports whether the assumed lifetime has passed. Without a
// session it reports true. Expiry never logs out by itself.
func (s *Session) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return true
	}
	return !s.now().Before(s.expiresAt)
}

// Remaining returns the time left before expiry, zero when expired or
// logged out.
func (s *Session) Remaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return 0
	}
	if d := s.expiresAt.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}
