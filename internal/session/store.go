// Package session provides per-visitor key/value persistence keyed by the
// session cookie. The memory store backs development and tests; production
// uses Redis so state survives process restarts and scales across replicas.
package session

import (
	"context"
	"sync"
	"time"
)

// Store persists small string values scoped to a session id.
type Store interface {
	// Get returns the value for key in session sid. The second result is
	// false when the key is absent.
	Get(ctx context.Context, sid, key string) (string, bool, error)
	// Set writes the value for key in session sid.
	Set(ctx context.Context, sid, key, value string) error
	// Delete removes key from session sid. Missing keys are not an error.
	Delete(ctx context.Context, sid, key string) error
}

// MemoryStore is an in-process Store. Entries expire lazily after ttl.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryStore creates a MemoryStore. ttl <= 0 means entries never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[sid+"\x00"+key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		s.mu.Lock()
		delete(s.entries, sid+"\x00"+key)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[sid+"\x00"+key] = memoryEntry{value: value, expires: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid, key string) error {
	s.mu.Lock()
	delete(s.entries, sid+"\x00"+key)
	s.mu.Unlock()
	return nil
}
