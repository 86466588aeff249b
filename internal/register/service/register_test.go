package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/store/storetest"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

// ── Visitors ─────────────────────────────────────────────────────────────────

func TestAddVisitor_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	mem := storetest.New()
	reg, _ := newTestRegister(mem)

	form := validVisitor()
	form.BadgeNumber = " B-12 "
	v, err := reg.AddVisitor(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "id-1", v.ID)
	assert.Equal(t, "B-12", v.BadgeNumber)
	assert.Equal(t, "2024-03-01T09:30:00Z", v.CreatedAt)

	reloaded, _ := newTestRegister(mem)
	reloaded.Load(ctx)
	got := reloaded.Visitors()
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(v.Date))
	got[0].Date = v.Date
	assert.Equal(t, v, got[0])
}

func TestAddVisitor_Validation(t *testing.T) {
	reg, _ := newTestRegister(storetest.New())

	form := validVisitor()
	form.Name = "J"
	form.Email = "not-an-email"
	form.Company = "  "
	form.Purpose = "party"
	form.Date = time.Time{}
	form.Time = "9h30"
	form.Signature = "data:image/png;base64,zzz"

	_, err := reg.AddVisitor(context.Background(), form)
	require.ErrorIs(t, err, service.ErrValidation)

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"company", "date", "email", "name", "purpose", "signature", "time"}, keys(verr.Fields))
	assert.Equal(t, "Email invalide", verr.Fields["email"])
	assert.Empty(t, reg.Visitors(), "rejected forms never reach the store")
}

func TestDeleteVisitor_LeavesEvents(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegister(storetest.New())

	v, err := reg.AddVisitor(ctx, validVisitor())
	require.NoError(t, err)

	e, err := reg.AddEvent(ctx, types.EventForm{
		VisitorID:   v.ID,
		Kind:        types.EventBadgeLost,
		Description: "Badge perdu au parking",
		Date:        testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", e.VisitorName, "name filled from the visitor")

	require.NoError(t, reg.DeleteVisitor(ctx, v.ID))
	assert.Empty(t, reg.Visitors())

	kept, err := reg.Event(e.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, kept.VisitorID)

	assert.ErrorIs(t, reg.DeleteVisitor(ctx, v.ID), service.ErrNotFound)
	_, err = reg.Visitor(v.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLoad_CorruptCollectionStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storetest.New()
	reg, _ := newTestRegister(mem)
	_, err := reg.AddVisitor(ctx, validVisitor())
	require.NoError(t, err)

	raw, err := mem.Get(ctx, "gpis_visitors")
	require.NoError(t, err)
	mem.Put("gpis_visitors", raw[:len(raw)/2])

	reloaded, _ := newTestRegister(mem)
	assert.NotPanics(t, func() { reloaded.Load(ctx) })
	assert.Empty(t, reloaded.Visitors())
}

func TestAddVisitor_ConcurrentCommitsPersistInOrder(t *testing.T) {
	ctx := context.Background()
	mem := storetest.New()
	gate := newGatedSubstrate(mem)
	reg := service.NewRegister(persist.New(gate),
		service.WithClock(func() time.Time { return testNow }),
		service.WithIDs(sequentialIDs()),
	)

	first := validVisitor()
	first.Name = "First"
	second := validVisitor()
	second.Name = "Second"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := reg.AddVisitor(ctx, first)
		assert.NoError(t, err)
	}()
	<-gate.entered

	go func() {
		defer wg.Done()
		_, err := reg.AddVisitor(ctx, second)
		assert.NoError(t, err)
	}()
	// The second commit must not reach the store while the first is still
	// writing; give it a chance to try before letting the first finish.
	select {
	case <-gate.later:
		t.Error("second commit wrote while the first write was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)
	wg.Wait()

	assert.Len(t, reg.Visitors(), 2)

	reloaded, _ := newTestRegister(mem)
	reloaded.Load(ctx)
	var names []string
	for _, v := range reloaded.Visitors() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"First", "Second"}, names)
}

func TestResolveEvent_ConcurrentWithAddEventPersistsBoth(t *testing.T) {
	ctx := context.Background()
	mem := storetest.New()
	seed, _ := newTestRegister(mem)
	open, err := seed.AddEvent(ctx, types.EventForm{
		VisitorName: "Alice Martin",
		Kind:        types.EventBadgeLost,
		Description: "Badge perdu au parking",
		Date:        testNow,
	})
	require.NoError(t, err)

	gate := newGatedSubstrate(mem)
	reg := service.NewRegister(persist.New(gate),
		service.WithClock(func() time.Time { return testNow }),
		service.WithIDs(func() string { return "id-new" }),
	)
	reg.Load(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := reg.ResolveEvent(ctx, open.ID, "Bob")
		assert.NoError(t, err)
	}()
	<-gate.entered

	go func() {
		defer wg.Done()
		_, err := reg.AddEvent(ctx, types.EventForm{
			VisitorName: "Paul Durand",
			Kind:        types.EventIncident,
			Description: "Alarme déclenchée",
			Date:        testNow,
		})
		assert.NoError(t, err)
	}()
	select {
	case <-gate.later:
		t.Error("second commit wrote while the first write was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)
	wg.Wait()

	reloaded, _ := newTestRegister(mem)
	reloaded.Load(ctx)
	got := reloaded.Events()
	require.Len(t, got, 2)
	assert.Equal(t, types.StatusResolved, got[0].Status)
	assert.Equal(t, "id-new", got[1].ID)
}

// ── Events ───────────────────────────────────────────────────────────────────

func TestResolveEvent(t *testing.T) {
	ctx := context.Background()
	mem := storetest.New()
	reg, _ := newTestRegister(mem)

	e, err := reg.AddEvent(ctx, types.EventForm{
		VisitorName: "Alice Martin",
		Kind:        types.EventIncident,
		Description: "Porte restée ouverte",
		Date:        testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, e.Status)
	assert.True(t, e.Consistent())

	resolved, err := reg.ResolveEvent(ctx, e.ID, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolved, resolved.Status)
	assert.Equal(t, service.DefaultResolver, resolved.ResolvedBy)
	assert.NotEmpty(t, resolved.ResolvedAt)
	assert.True(t, resolved.Consistent())

	_, err = reg.ResolveEvent(ctx, e.ID, "Bob")
	assert.ErrorIs(t, err, types.ErrAlreadyResolved)

	reloaded, _ := newTestRegister(mem)
	reloaded.Load(ctx)
	got, err := reloaded.Event(e.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolved, got.Status)
	assert.Equal(t, service.DefaultResolver, got.ResolvedBy)

	_, err = reg.ResolveEvent(ctx, "missing", "Bob")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAddEvent_Validation(t *testing.T) {
	reg, _ := newTestRegister(storetest.New())

	_, err := reg.AddEvent(context.Background(), types.EventForm{
		VisitorID:   "unknown",
		Kind:        "fire",
		Description: "abc",
	})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"date", "description", "event_type", "visitor_name"}, keys(verr.Fields))
}

func TestRegister_NilStoreKeepsWorking(t *testing.T) {
	ctx := context.Background()
	reg := service.NewRegister(nil)
	reg.Load(ctx)

	_, err := reg.AddVisitor(ctx, validVisitor())
	require.NoError(t, err)
	assert.Len(t, reg.Visitors(), 1)
}
