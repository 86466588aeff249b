package types

import (
	"errors"
	"strings"
	"time"
)

var ErrAlreadyResolved = errors.New("event is already resolved")

type EventKind string

const (
	EventBadgeLost  EventKind = "badge_lost"
	EventBadgeFound EventKind = "badge_found"
	EventIncident   EventKind = "incident"
	EventOther      EventKind = "other"
)

var EventKinds = []EventKind{EventBadgeLost, EventBadgeFound, EventIncident, EventOther}

var eventKindLabels = map[EventKind]string{
	EventBadgeLost:  "Badge perdu",
	EventBadgeFound: "Badge retrouvé",
	EventIncident:   "Incident",
	EventOther:      "Autre",
}

func (k EventKind) Valid() bool {
	_, ok := eventKindLabels[k]
	return ok
}

func (k EventKind) Label() string {
	if l, ok := eventKindLabels[k]; ok {
		return l
	}
	return string(k)
}

type EventStatus string

const (
	StatusOpen     EventStatus = "open"
	StatusResolved EventStatus = "resolved"
)

func (s EventStatus) Label() string {
	if s == StatusResolved {
		return "Résolu"
	}
	return "En cours"
}

// TraceabilityEvent is a lost/found badge or incident entry. VisitorID is a
// weak reference: the visitor may be deleted without touching the event.
type TraceabilityEvent struct {
	ID          string      `json:"id"`
	VisitorID   string      `json:"visitor_id,omitempty"`
	VisitorName string      `json:"visitor_name"`
	Kind        EventKind   `json:"event_type"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	CreatedAt   string      `json:"created_at"`
	Status      EventStatus `json:"status"`
	ResolvedAt  string      `json:"resolved_at,omitempty"`
	ResolvedBy  string      `json:"resolved_by,omitempty"`
}

func (e TraceabilityEvent) When() time.Time { return e.Date }

// Resolve moves an open event to resolved. There is no way back.
func (e *TraceabilityEvent) Resolve(by string, at time.Time) error {
	if e.Status == StatusResolved {
		return ErrAlreadyResolved
	}
	e.Status = StatusResolved
	e.ResolvedAt = at.UTC().Format(time.RFC3339Nano)
	e.ResolvedBy = strings.TrimSpace(by)
	return nil
}

// Consistent reports whether the resolution fields agree with the status.
func (e TraceabilityEvent) Consistent() bool {
	resolved := e.ResolvedAt != "" && e.ResolvedBy != ""
	switch e.Status {
	case StatusOpen:
		return e.ResolvedAt == "" && e.ResolvedBy == ""
	case StatusResolved:
		return resolved
	default:
		return false
	}
}

type EventForm struct {
	VisitorID   string    `json:"visitor_id"`
	VisitorName string    `json:"visitor_name"`
	Kind        EventKind `json:"event_type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func NewEventForm(now time.Time) EventForm {
	return EventForm{
		Kind: EventBadgeLost,
		Date: now,
	}
}

// Record builds an uncommitted open event from the form.
func (f EventForm) Record() TraceabilityEvent {
	return TraceabilityEvent{
		VisitorID:   strings.TrimSpace(f.VisitorID),
		VisitorName: f.VisitorName,
		Kind:        f.Kind,
		Description: f.Description,
		Date:        f.Date,
		Status:      StatusOpen,
	}
}
