package auth

import (
	"sync"
	"time"
)

// TokenRevocationStore keeps the jti of logged-out sessions until the token
// would have expired on its own. Safe for concurrent use.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	done    chan struct{}
	once    sync.Once
}

// NewTokenRevocationStore starts a cleanup goroutine that runs every interval
// until Close.
func NewTokenRevocationStore(interval time.Duration) *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.cleanupLoop(interval)
	return s
}

func (s *TokenRevocationStore) Revoke(jti string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = expiresAt
}

func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok
}

func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *TokenRevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *TokenRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.cleanup(now)
		}
	}
}

func (s *TokenRevocationStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
}
