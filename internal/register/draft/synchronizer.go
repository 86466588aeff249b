// Package draft keeps in-progress form values recoverable across reloads.
package draft

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
)

// Envelope is the stored shape of a draft.
type Envelope[D any] struct {
	SavedAt time.Time `json:"saved_at"`
	Values  D         `json:"values"`
}

// Synchronizer mirrors one form's live values into a single draft key.
//
// The first change after Mount marks the form dirty; every change while
// dirty saves a full snapshot, last write wins. Reset and Submitted clear the
// key and the dirty flag. Saves are best effort: failures are logged by the
// persist layer and never reach the caller.
//
// With a debounce window the latest snapshot inside the window is written
// when it closes. Saves for one key are never in flight concurrently.
type Synchronizer[D any] struct {
	store    *persist.Store
	key      string
	debounce time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	dirty      bool
	closed     bool
	savedAt    time.Time // of the stored draft; zero when there is none
	pending    *D
	pendingCtx context.Context
	timer      *time.Timer
	gen        uint64
}

type Option func(*config)

type config struct {
	debounce time.Duration
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// WithDebounce coalesces changes arriving within d into one write. Zero
// writes on every change.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(c *config) { c.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *config) { c.metrics = m } }

func New[D any](s *persist.Store, key string, opts ...Option) *Synchronizer[D] {
	c := config{now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&c)
	}
	return &Synchronizer[D]{
		store:    s,
		key:      key,
		debounce: c.debounce,
		now:      c.now,
		log:      c.log.With().Str("draft", key).Logger(),
		metrics:  c.metrics,
	}
}

func (s *Synchronizer[D]) Key() string { return s.key }

// Mount loads the stored draft, if any. The form starts clean; a snapshot
// still waiting on the debounce window is written first.
func (s *Synchronizer[D]) Mount(ctx context.Context) (D, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked(ctx)
	s.dirty = false

	env, ok := persist.Load[Envelope[D]](ctx, s.store, s.key)
	if !ok {
		s.savedAt = time.Time{}
		var zero D
		return zero, false
	}
	s.savedAt = env.SavedAt
	return env.Values, true
}

// Change records a new full snapshot of the form.
func (s *Synchronizer[D]) Change(ctx context.Context, snapshot D) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Debug().Msg("change after close ignored")
		return
	}
	s.dirty = true

	if s.debounce <= 0 {
		s.writeLocked(ctx, snapshot)
		return
	}

	s.pending = &snapshot
	s.pendingCtx = context.WithoutCancel(ctx)
	if s.timer == nil {
		gen := s.gen
		s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
	}
}

func (s *Synchronizer[D]) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SavedAt is when the stored draft was last written, as far as this
// synchronizer knows. Zero means no draft is stored; a snapshot still
// waiting on the debounce window does not count.
func (s *Synchronizer[D]) SavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}

// Flush writes a pending debounced snapshot now.
func (s *Synchronizer[D]) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx)
}

// Reset discards the draft after an explicit form reset.
func (s *Synchronizer[D]) Reset(ctx context.Context) { s.clear(ctx) }

// Submitted discards the draft after the form was committed.
func (s *Synchronizer[D]) Submitted(ctx context.Context) { s.clear(ctx) }

func (s *Synchronizer[D]) clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop any pending write first so the cleared draft cannot come back.
	s.cancelPendingLocked()
	s.store.Clear(ctx, s.key)
	s.dirty = false
	s.savedAt = time.Time{}
}

// Close writes any pending snapshot and stops accepting changes.
func (s *Synchronizer[D]) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.flushLocked(ctx)
	s.closed = true
}

// Expire clears the stored draft when it was saved before cutoff. It reports
// whether a draft was removed.
func (s *Synchronizer[D]) Expire(ctx context.Context, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return false
	}
	env, ok := persist.Load[Envelope[D]](ctx, s.store, s.key)
	if !ok || env.SavedAt.IsZero() || !env.SavedAt.Before(cutoff) {
		return false
	}
	s.store.Clear(ctx, s.key)
	s.dirty = false
	s.savedAt = time.Time{}
	return true
}

func (s *Synchronizer[D]) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.flushLocked(s.pendingCtx)
}

func (s *Synchronizer[D]) flushLocked(ctx context.Context) {
	if s.pending == nil {
		s.cancelPendingLocked()
		return
	}
	snapshot := *s.pending
	s.cancelPendingLocked()
	s.writeLocked(ctx, snapshot)
}

func (s *Synchronizer[D]) cancelPendingLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.pendingCtx = nil
	s.gen++
}

func (s *Synchronizer[D]) writeLocked(ctx context.Context, snapshot D) {
	at := s.now().UTC()
	s.store.Save(ctx, s.key, Envelope[D]{SavedAt: at, Values: snapshot})
	s.savedAt = at
	s.metrics.DraftSaved(s.key)
}
