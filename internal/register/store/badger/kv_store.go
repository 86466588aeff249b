package badger

import (
	"context"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/register/store"
)

// KVStore keeps register documents in a badger database. An empty dir opens
// an in-memory instance.
type KVStore struct {
	db *badger.DB
}

func Open(dir string, logger zerolog.Logger) (*KVStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{log: logger.With().Str("component", "badger").Logger()}).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir badger dir")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &KVStore{db: db}, nil
}

func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Get %s", key)
	}
	return out, nil
}

func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return errors.Wrapf(err, "Set %s", key)
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "Delete %s", key)
}

func (s *KVStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

func (s *KVStore) Close() error { return s.db.Close() }

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log.Error().Msgf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log.Warn().Msgf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log.Info().Msgf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log.Debug().Msgf(format, args...) }
