package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store.Get when the slot has never been written
// or was deleted.
var ErrNotFound = errors.New("session: slot not found")

// Store abstracts the persisted session slot: one namespaced key holding the
// serialized identity of the signed-in user. Writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SlotKey returns the namespaced slot key for a role's account. The demo
// directory holds exactly one account per role, so the slot is effectively
// per signed-in principal.
func SlotKey(role Role) string {
	return "mediscan:session:" + string(role)
}

// MemoryStore is the in-process Store used in tests and as a fallback when
// Redis is unavailable.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.slots[key] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
