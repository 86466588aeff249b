package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned by Set when the substrate refuses the
	// write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Substrate is the key-value layer the register persists into. Each value is
// a self-contained document; there is no cross-key transaction.
type Substrate interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by substrates that can report their own liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
