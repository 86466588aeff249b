package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

var ErrNotFound = errors.New("not found")

const DefaultResolver = "Admin"

// Register owns the visitor and traceability collections. Every mutation
// rewrites the affected collection in the store wholesale, under the write
// lock, so stored copies land in commit order.
type Register struct {
	store    *persist.Store
	now      func() time.Time
	newID    func() string
	resolver string
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	visitors []types.Visitor
	events   []types.TraceabilityEvent
}

type Option func(*Register)

func WithClock(now func() time.Time) Option { return func(r *Register) { r.now = now } }

func WithIDs(next func() string) Option { return func(r *Register) { r.newID = next } }

// WithResolver names who resolves an event when the caller gives no name.
func WithResolver(name string) Option {
	return func(r *Register) {
		if strings.TrimSpace(name) != "" {
			r.resolver = strings.TrimSpace(name)
		}
	}
}

func WithLogger(l zerolog.Logger) Option { return func(r *Register) { r.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Register) { r.metrics = m } }

func NewRegister(s *persist.Store, opts ...Option) *Register {
	if s == nil {
		s = persist.New(nil)
	}
	r := &Register{
		store:    s,
		now:      time.Now,
		newID:    uuid.NewString,
		resolver: DefaultResolver,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load hydrates both collections from the store. Missing or unreadable
// documents leave the collection empty.
func (r *Register) Load(ctx context.Context) {
	visitors, _ := persist.Load[[]types.Visitor](ctx, r.store, persist.VisitorsKey)
	events, _ := persist.Load[[]types.TraceabilityEvent](ctx, r.store, persist.EventsKey)

	r.mu.Lock()
	r.visitors = visitors
	r.events = events
	r.mu.Unlock()

	r.log.Info().
		Int("visitors", len(visitors)).
		Int("events", len(events)).
		Msg("register loaded")
}

// Now is the register's clock, used for form defaults.
func (r *Register) Now() time.Time { return r.now() }

// Visitors returns every visitor in insertion order.
func (r *Register) Visitors() []types.Visitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.visitors)
}

func (r *Register) Visitor(id string) (types.Visitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.visitors, func(v types.Visitor) bool { return v.ID == id })
	if i < 0 {
		return types.Visitor{}, errors.Wrapf(ErrNotFound, "visitor %s", id)
	}
	return r.visitors[i], nil
}

// AddVisitor validates and commits the form.
func (r *Register) AddVisitor(ctx context.Context, f types.VisitorForm) (types.Visitor, error) {
	f = trimVisitorForm(f)
	if err := ValidateVisitor(f); err != nil {
		return types.Visitor{}, err
	}

	v := f.Record()
	v.ID = r.newID()
	v.CreatedAt = r.now().UTC().Format(time.RFC3339Nano)

	r.mu.Lock()
	r.visitors = append(r.visitors, v)
	r.store.Save(ctx, persist.VisitorsKey, r.visitors)
	r.mu.Unlock()

	r.metrics.VisitorRegistered()
	r.log.Info().Str("visitor_id", v.ID).Str("purpose", string(v.Purpose)).Msg("visitor registered")
	return v, nil
}

// DeleteVisitor removes a visitor. Events that name the visitor are kept
// as they are.
func (r *Register) DeleteVisitor(ctx context.Context, id string) error {
	r.mu.Lock()
	i := slices.IndexFunc(r.visitors, func(v types.Visitor) bool { return v.ID == id })
	if i < 0 {
		r.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "visitor %s", id)
	}
	r.visitors = slices.Delete(r.visitors, i, i+1)
	r.store.Save(ctx, persist.VisitorsKey, r.visitors)
	r.mu.Unlock()

	r.log.Info().Str("visitor_id", id).Msg("visitor deleted")
	return nil
}

// Events returns every traceability event in insertion order.
func (r *Register) Events() []types.TraceabilityEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

func (r *Register) Event(id string) (types.TraceabilityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.eventIndex(id)
	if i < 0 {
		return types.TraceabilityEvent{}, errors.Wrapf(ErrNotFound, "event %s", id)
	}
	return r.events[i], nil
}

// FillVisitorName copies the referenced visitor's name onto the form when
// the visitor is known.
func (r *Register) FillVisitorName(f types.EventForm) (types.EventForm, bool) {
	id := strings.TrimSpace(f.VisitorID)
	if id == "" {
		return f, false
	}
	v, err := r.Visitor(id)
	if err != nil {
		return f, false
	}
	f.VisitorID = id
	f.VisitorName = v.Name
	return f, true
}

// AddEvent validates and commits an open event. A known visitor id fills in
// a blank visitor name.
func (r *Register) AddEvent(ctx context.Context, f types.EventForm) (types.TraceabilityEvent, error) {
	f.VisitorName = strings.TrimSpace(f.VisitorName)
	f.Description = strings.TrimSpace(f.Description)
	if f.VisitorName == "" {
		f, _ = r.FillVisitorName(f)
	}
	if err := ValidateEvent(f); err != nil {
		return types.TraceabilityEvent{}, err
	}

	e := f.Record()
	e.ID = r.newID()
	e.CreatedAt = r.now().UTC().Format(time.RFC3339Nano)

	r.mu.Lock()
	r.events = append(r.events, e)
	r.store.Save(ctx, persist.EventsKey, r.events)
	r.mu.Unlock()

	r.metrics.EventOpened()
	r.log.Info().Str("event_id", e.ID).Str("event_type", string(e.Kind)).Msg("traceability event recorded")
	return e, nil
}

// ResolveEvent closes an open event. by defaults to the configured resolver.
func (r *Register) ResolveEvent(ctx context.Context, id, by string) (types.TraceabilityEvent, error) {
	if strings.TrimSpace(by) == "" {
		by = r.resolver
	}

	r.mu.Lock()
	i := r.eventIndex(id)
	if i < 0 {
		r.mu.Unlock()
		return types.TraceabilityEvent{}, errors.Wrapf(ErrNotFound, "event %s", id)
	}
	e := r.events[i]
	if err := e.Resolve(by, r.now()); err != nil {
		r.mu.Unlock()
		return types.TraceabilityEvent{}, errors.Wrapf(err, "event %s", id)
	}
	r.events[i] = e
	r.store.Save(ctx, persist.EventsKey, r.events)
	r.mu.Unlock()

	r.metrics.EventResolved()
	r.log.Info().Str("event_id", id).Str("resolved_by", e.ResolvedBy).Msg("traceability event resolved")
	return e, nil
}

func (r *Register) eventIndex(id string) int {
	return slices.IndexFunc(r.events, func(e types.TraceabilityEvent) bool { return e.ID == id })
}

func trimVisitorForm(f types.VisitorForm) types.VisitorForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Company = strings.TrimSpace(f.Company)
	f.Phone = strings.TrimSpace(f.Phone)
	f.PurposeDetails = strings.TrimSpace(f.PurposeDetails)
	f.Time = strings.TrimSpace(f.Time)
	f.Notes = strings.TrimSpace(f.Notes)
	f.BadgeNumber = strings.TrimSpace(f.BadgeNumber)
	return f
}
