// Package persist stores register documents as JSON text under namespaced
// keys. Every operation degrades to a logged diagnostic rather than an error:
// the register keeps running on a missing or failing substrate.
package persist

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/store"
)

const DefaultNamespace = "gpis"

// Logical key names. The substrate key is "<namespace>_<name>".
const (
	VisitorsKey     = "visitors"
	EventsKey       = "traceability_events"
	VisitorDraftKey = "visitor_form_draft"
	EventDraftKey   = "traceability_form_draft"
)

type Store struct {
	sub       store.Substrate
	namespace string
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// New wraps sub. A nil sub is allowed: saves are dropped and loads find nothing.
func New(sub store.Substrate, opts ...Option) *Store {
	s := &Store{
		sub:       sub,
		namespace: DefaultNamespace,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the substrate key for a logical name.
func (s *Store) Key(name string) string {
	return s.namespace + "_" + name
}

// Save encodes value as JSON and writes it under name, replacing whatever was
// there.
func (s *Store) Save(ctx context.Context, name string, value any) {
	key := s.Key(name)
	if s.sub == nil {
		s.log.Warn().Str("key", key).Msg("no storage available; value not saved")
		s.metrics.StoreOp("save", "unavailable")
		return
	}

	buf, err := json.Marshal(value)
	if err != nil {
		s.log.Error().Stack().Err(errors.WithStack(err)).Str("key", key).Msg("encode value")
		s.metrics.StoreOp("save", "error")
		return
	}

	if err := s.sub.Set(ctx, key, buf); err != nil {
		ev := s.log.Error()
		if errors.Is(err, store.ErrQuotaExceeded) {
			ev = s.log.Warn()
		}
		ev.Err(err).Str("key", key).Int("bytes", len(buf)).Msg("save failed")
		s.metrics.StoreOp("save", "error")
		return
	}
	s.metrics.StoreOp("save", "ok")
}

// Clear removes name. Clearing an absent key is a no-op.
func (s *Store) Clear(ctx context.Context, name string) {
	key := s.Key(name)
	if s.sub == nil {
		s.metrics.StoreOp("clear", "unavailable")
		return
	}
	if err := s.sub.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("clear failed")
		s.metrics.StoreOp("clear", "error")
		return
	}
	s.metrics.StoreOp("clear", "ok")
}

// Load decodes the document under name into a T. It reports false for an
// absent key (silently) and for unreadable or malformed documents (logged).
// time.Time fields revive from their RFC 3339 text.
func Load[T any](ctx context.Context, s *Store, name string) (T, bool) {
	var zero T
	buf, ok := s.raw(ctx, name)
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(buf, &v); err != nil {
		s.log.Warn().Err(err).Str("key", s.Key(name)).Msg("stored value is not valid; ignoring it")
		s.metrics.StoreOp("load", "corrupt")
		return zero, false
	}
	s.metrics.StoreOp("load", "ok")
	return v, true
}

func (s *Store) raw(ctx context.Context, name string) ([]byte, bool) {
	key := s.Key(name)
	if s.sub == nil {
		s.metrics.StoreOp("load", "unavailable")
		return nil, false
	}
	buf, err := s.sub.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.StoreOp("load", "miss")
		return nil, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("load failed")
		s.metrics.StoreOp("load", "error")
		return nil, false
	}
	return buf, true
}

// Ping reports substrate liveness for health checks.
func (s *Store) Ping(ctx context.Context) error {
	if s.sub == nil {
		return errors.New("no storage substrate")
	}
	if p, ok := s.sub.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
