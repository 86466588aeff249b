package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/BrandonDHaskell/registre/internal/register/store"
)

// KVStore keeps register documents as plain redis strings with no TTL.
type KVStore struct {
	c *redis.Client
}

func NewKVStore(c *redis.Client) *KVStore { return &KVStore{c: c} }

// Open dials addr and checks the connection.
func Open(ctx context.Context, addr, password string, db int) (*KVStore, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "redis ping %s", addr)
	}
	return NewKVStore(c), nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.c.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "Get %s", key)
	}
	return val, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.c.Set(ctx, key, value, 0).Err()
	if err != nil && isOOM(err) {
		return errors.Wrapf(store.ErrQuotaExceeded, "Set %s: %v", key, err)
	}
	return errors.Wrapf(err, "Set %s", key)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.c.Del(ctx, key).Err(), "Delete %s", key)
}

func (s *KVStore) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

func (s *KVStore) Close() error { return s.c.Close() }

// isOOM matches redis' maxmemory rejection.
func isOOM(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		return len(msg) >= 3 && msg[:3] == "OOM"
	}
	return false
}
