// Package storetest provides an in-memory substrate that tests can inspect.
package storetest

import (
	"context"
	"slices"
	"sync"

	"github.com/BrandonDHaskell/registre/internal/register/store/memory"
)

// Store is a memory substrate that also tracks which keys currently hold a
// value, and can be seeded with raw bytes.
type Store struct {
	*memory.Store

	mu   sync.Mutex
	keys map[string]struct{}
}

func New() *Store { return wrap(memory.New()) }

func NewWithQuota(quota int) *Store { return wrap(memory.NewWithQuota(quota)) }

func wrap(m *memory.Store) *Store {
	return &Store{Store: m, keys: make(map[string]struct{})}
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.Store.Delete(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// Keys returns the keys holding a value, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Put seeds key with raw bytes, such as a corrupt or legacy document.
func (s *Store) Put(key string, value []byte) {
	_ = s.Set(context.Background(), key, value)
}
