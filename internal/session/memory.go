package session

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests. Expiry is
// evaluated lazily on read; there is no background sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sid]
	s.mu.RUnlock()

	if !ok || time.Now().After(sess.expiresAt) {
		return "", false, nil
	}

	value, ok := sess.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok || time.Now().After(sess.expiresAt) {
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[sid] = sess
	}

	sess.values[key] = value
	sess.expiresAt = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return nil
}
