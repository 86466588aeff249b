package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// SeedEntry is one key-value document written by SeedDev.
type SeedEntry struct {
	Key   string
	Value []byte
}

type SeedDevOptions struct {
	Entries []SeedEntry
}

// SeedDev writes the given documents into kv_entries, leaving keys that
// already hold a value alone. Only meant for dev databases.
func SeedDev(ctx context.Context, conn *sql.DB, opt SeedDevOptions) (int, error) {
	now := time.Now().UTC().UnixMilli()

	seeded := 0
	for _, e := range opt.Entries {
		if e.Key == "" {
			continue
		}
		res, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO kv_entries(key, value, updated_at_ms)
VALUES (?, ?, ?);`, e.Key, e.Value, now)
		if err != nil {
			return seeded, errors.Wrapf(err, "seed %s", e.Key)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			seeded++
		}
	}

	return seeded, nil
}
