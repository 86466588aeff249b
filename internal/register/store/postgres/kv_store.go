package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/BrandonDHaskell/registre/internal/register/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
  key           TEXT PRIMARY KEY,
  value         BYTEA NOT NULL,
  updated_at_ms BIGINT NOT NULL
);`

// KVStore keeps register documents in a Postgres kv_entries table.
type KVStore struct {
	db *sql.DB
}

// Open connects with lib/pq and ensures the table exists.
func Open(ctx context.Context, dsn string) (*KVStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open postgres")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "postgres ping")
	}

	s, err := NewKVStore(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func NewKVStore(ctx context.Context, conn *sql.DB) (*KVStore, error) {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "ensure kv_entries")
	}
	return &KVStore{db: conn}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Get %s", key)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_entries(key, value, updated_at_ms) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at_ms = EXCLUDED.updated_at_ms`,
		key, value, time.Now().UTC().UnixMilli(),
	)
	return errors.Wrapf(err, "Set %s", key)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return errors.Wrapf(err, "Delete %s", key)
}

func (s *KVStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *KVStore) Close() error { return s.db.Close() }
