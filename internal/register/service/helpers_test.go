package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BrandonDHaskell/registre/internal/register/draft"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/store/storetest"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

var testNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// newTestRegister builds a Register over an in-memory store with a fixed
// clock and predictable ids.
func newTestRegister(mem *storetest.Store) (*service.Register, *persist.Store) {
	ps := persist.New(mem)
	reg := service.NewRegister(ps,
		service.WithClock(func() time.Time { return testNow }),
		service.WithIDs(sequentialIDs()),
	)
	return reg, ps
}

func validVisitor() types.VisitorForm {
	f := types.NewVisitorForm(testNow)
	f.Name = "Jean Dupont"
	f.Email = "jean.dupont@acme.fr"
	f.Company = "ACME"
	return f
}

func newIntakes(reg *service.Register, ps *persist.Store) (*service.VisitorIntake, *service.EventIntake) {
	vi := service.NewVisitorIntake(reg, draft.New[types.VisitorDraft](ps, persist.VisitorDraftKey))
	ei := service.NewEventIntake(reg, draft.New[types.EventDraft](ps, persist.EventDraftKey))
	return vi, ei
}

// gatedSubstrate holds the first Set until release is closed. Later Sets
// announce themselves on later and go straight through.
type gatedSubstrate struct {
	*storetest.Store
	mu      sync.Mutex
	sets    int
	entered chan struct{}
	release chan struct{}
	later   chan struct{}
}

func newGatedSubstrate(mem *storetest.Store) *gatedSubstrate {
	return &gatedSubstrate{
		Store:   mem,
		entered: make(chan struct{}),
		release: make(chan struct{}),
		later:   make(chan struct{}, 8),
	}
}

func (g *gatedSubstrate) Set(ctx context.Context, key string, value []byte) error {
	g.mu.Lock()
	g.sets++
	first := g.sets == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
	} else {
		g.later <- struct{}{}
	}
	return g.Store.Set(ctx, key, value)
}
