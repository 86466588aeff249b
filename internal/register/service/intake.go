package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/registre/internal/register/draft"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

// VisitorIntake drives the visitor registration form: defaults, draft
// recovery and commit.
type VisitorIntake struct {
	reg   *Register
	draft *draft.Synchronizer[types.VisitorDraft]
}

func NewVisitorIntake(reg *Register, d *draft.Synchronizer[types.VisitorDraft]) *VisitorIntake {
	return &VisitorIntake{reg: reg, draft: d}
}

// Mount returns the form a client should start from: defaults with any saved
// draft applied. restored reports whether a draft was found.
func (in *VisitorIntake) Mount(ctx context.Context) (form types.VisitorForm, restored bool) {
	form = types.NewVisitorForm(in.reg.Now())
	d, ok := in.draft.Mount(ctx)
	if ok {
		d.ApplyTo(&form)
	}
	return form, ok
}

// Change mirrors the client's current form values into the draft.
func (in *VisitorIntake) Change(ctx context.Context, form types.VisitorForm) {
	in.draft.Change(ctx, types.VisitorDraftOf(form))
}

// Reset discards the draft and returns a blank form.
func (in *VisitorIntake) Reset(ctx context.Context) types.VisitorForm {
	in.draft.Reset(ctx)
	return types.NewVisitorForm(in.reg.Now())
}

// Submit commits the form and clears its draft. A rejected form keeps the
// draft.
func (in *VisitorIntake) Submit(ctx context.Context, form types.VisitorForm) (types.Visitor, error) {
	v, err := in.reg.AddVisitor(ctx, form)
	if err != nil {
		return types.Visitor{}, err
	}
	in.draft.Submitted(ctx)
	return v, nil
}

func (in *VisitorIntake) Dirty() bool { return in.draft.Dirty() }

// SavedAt is when the draft was last stored; zero when none is.
func (in *VisitorIntake) SavedAt() time.Time { return in.draft.SavedAt() }

type EventIntake struct {
	reg   *Register
	draft *draft.Synchronizer[types.EventDraft]
}

func NewEventIntake(reg *Register, d *draft.Synchronizer[types.EventDraft]) *EventIntake {
	return &EventIntake{reg: reg, draft: d}
}

func (in *EventIntake) Mount(ctx context.Context) (form types.EventForm, restored bool) {
	form = types.NewEventForm(in.reg.Now())
	d, ok := in.draft.Mount(ctx)
	if ok {
		d.ApplyTo(&form)
	}
	return form, ok
}

func (in *EventIntake) Change(ctx context.Context, form types.EventForm) {
	in.draft.Change(ctx, types.EventDraftOf(form))
}

// SelectVisitor points the form at a known visitor, copying their name, and
// records the change.
func (in *EventIntake) SelectVisitor(ctx context.Context, form types.EventForm, visitorID string) (types.EventForm, bool) {
	form.VisitorID = visitorID
	filled, ok := in.reg.FillVisitorName(form)
	if !ok {
		return form, false
	}
	in.Change(ctx, filled)
	return filled, true
}

func (in *EventIntake) Reset(ctx context.Context) types.EventForm {
	in.draft.Reset(ctx)
	return types.NewEventForm(in.reg.Now())
}

func (in *EventIntake) Submit(ctx context.Context, form types.EventForm) (types.TraceabilityEvent, error) {
	e, err := in.reg.AddEvent(ctx, form)
	if err != nil {
		return types.TraceabilityEvent{}, err
	}
	in.draft.Submitted(ctx)
	return e, nil
}

func (in *EventIntake) Dirty() bool { return in.draft.Dirty() }

func (in *EventIntake) SavedAt() time.Time { return in.draft.SavedAt() }
