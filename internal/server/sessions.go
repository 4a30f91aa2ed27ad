package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ligun0805/multisender/internal/chain"
)

// SessionCookie carries the session id between requests.
const SessionCookie = "session_id"

// DefaultSessionTTL is how long an idle session keeps its keys.
const DefaultSessionTTL = 5 * time.Hour

type sessionEntry struct {
	keys []chain.Key
	seen time.Time
}

// Sessions holds imported keys in memory only, per cookie id.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]*sessionEntry
}

// NewSessions returns an empty store; ttl <= 0 means DefaultSessionTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{ttl: ttl, now: time.Now, m: make(map[string]*sessionEntry)}
}

// Keys returns the session's keys and refreshes its idle timer.
func (s *Sessions) Keys(id string) []chain.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.m[id]
	if !ok {
		return nil
	}
	e.seen = s.now()
	return append([]chain.Key(nil), e.keys...)
}

// Put replaces the session's keys.
func (s *Sessions) Put(id string, keys []chain.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.m[id] = &sessionEntry{keys: append([]chain.Key(nil), keys...), seen: s.now()}
}

// Delete forgets the session. Unknown ids are ignored.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

// Len counts live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.m)
}

func (s *Sessions) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.m {
		if e.seen.Before(cutoff) {
			delete(s.m, id)
		}
	}
}

// sessionID returns the request's session id, or "" when it has none.
func sessionID(c echo.Context) string {
	ck, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

// ensureSession returns the request's session id, issuing a new cookie if needed.
func ensureSession(c echo.Context) string {
	if id := sessionID(c); id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func expireSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
