package session

import (
	"context"
	"sync"
	"time"

	"github.com/tidecartapp/tidecart/internal/checkout"
)

// MemoryStore is an in-memory checkout session store. Sessions are held by
// pointer; the checkout controller mutates them in place and UpdateSession
// only refreshes the TTL.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	session   *checkout.Session
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*checkout.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked(time.Now())

	entry, ok := s.sessions[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.session, true
}

func (s *MemoryStore) Set(_ context.Context, key string, sess *checkout.Session, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(time.Now())

	s.sessions[key] = &memoryEntry{
		session:   sess,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
}

func (s *MemoryStore) cleanupExpiredLocked(now time.Time) {
	for key, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
