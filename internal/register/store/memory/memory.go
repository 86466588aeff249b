package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/registre/internal/register/store"
)

// Store is an in-memory substrate. With a non-zero quota it rejects writes
// that would push the total stored bytes past the quota, the way a browser's
// local storage does.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
	used  int
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// NewWithQuota returns a store limited to quota bytes of keys plus values.
// A quota of 0 means unlimited.
func NewWithQuota(quota int) *Store {
	s := New()
	if quota > 0 {
		s.quota = quota
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used
	if old, ok := s.data[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if s.quota > 0 && used > s.quota {
		return store.ErrQuotaExceeded
	}

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	s.used = used
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
