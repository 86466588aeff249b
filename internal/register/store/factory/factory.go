// Package factory opens the storage substrate named by the configuration.
package factory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/config"
	"github.com/BrandonDHaskell/registre/internal/db"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/store"
	badgerstore "github.com/BrandonDHaskell/registre/internal/register/store/badger"
	"github.com/BrandonDHaskell/registre/internal/register/store/memory"
	pgstore "github.com/BrandonDHaskell/registre/internal/register/store/postgres"
	redisstore "github.com/BrandonDHaskell/registre/internal/register/store/redis"
	sqlitestore "github.com/BrandonDHaskell/registre/internal/register/store/sqlite"
)

// CloseFunc releases whatever Open acquired.
type CloseFunc func() error

func noopClose() error { return nil }

// Open returns the substrate for cfg.Backend.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.Substrate, CloseFunc, error) {
	log := logger.With().Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case config.BackendMemory:
		log.Info().Int("quota_bytes", cfg.MemoryQuotaBytes).Msg("storage opened")
		return memory.NewWithQuota(cfg.MemoryQuotaBytes), noopClose, nil

	case config.BackendSQLite, "":
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, nil, errors.Wrap(err, "open sqlite")
		}
		if cfg.IsDev() {
			n, err := db.SeedDev(ctx, conn, db.SeedDevOptions{Entries: devSeed(cfg.Namespace)})
			if err != nil {
				_ = conn.Close()
				return nil, nil, errors.Wrap(err, "seed dev db")
			}
			log.Debug().Int("seeded", n).Msg("dev seed applied")
		}
		w := db.NewWorker(conn)
		log.Info().Str("path", cfg.DBPath).Msg("storage opened")
		return sqlitestore.NewKVStore(conn, w), func() error {
			w.Close()
			return conn.Close()
		}, nil

	case config.BackendPostgres:
		kv, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("storage opened")
		return kv, kv.Close, nil

	case config.BackendBadger:
		kv, err := badgerstore.Open(cfg.BadgerDir, logger)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.BadgerDir).Msg("storage opened")
		return kv, kv.Close, nil

	case config.BackendRedis:
		kv, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("storage opened")
		return kv, kv.Close, nil

	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// devSeed gives a fresh dev database empty collections, so the stored
// layout can be inspected before the first registration.
func devSeed(namespace string) []db.SeedEntry {
	ps := persist.New(nil, persist.WithNamespace(namespace))
	return []db.SeedEntry{
		{Key: ps.Key(persist.VisitorsKey), Value: []byte("[]")},
		{Key: ps.Key(persist.EventsKey), Value: []byte("[]")},
	}
}
