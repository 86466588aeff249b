package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	dbpkg "github.com/BrandonDHaskell/registre/internal/db"
	"github.com/BrandonDHaskell/registre/internal/register/store"
)

// KVStore keeps register documents in the kv_entries table. Reads go straight
// to the pool; writes are serialised through the db worker.
type KVStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewKVStore(db *sql.DB, writer *dbpkg.Worker) *KVStore {
	return &KVStore{db: db, writer: writer}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, store.ErrNotFound
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `
SELECT value FROM kv_entries WHERE key = ?;
`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Get %s", key)
	}
	return value, nil
}

// Set replaces the whole document under key.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("Set: empty key")
	}
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv_entries(key, value, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value = excluded.value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, nowMs); err != nil {
			return errors.Wrapf(err, "Set %s", key)
		}
		return nil
	})
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?;`, key); err != nil {
			return errors.Wrapf(err, "Delete %s", key)
		}
		return nil
	})
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
