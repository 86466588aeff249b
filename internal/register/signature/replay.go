package signature

import (
	"github.com/pkg/errors"
)

var (
	ErrInert = errors.New("signature surface unavailable")

	// ErrSurfaceTooLarge is returned for a requested surface beyond
	// MaxWidth x MaxHeight.
	ErrSurfaceTooLarge = errors.New("signature surface too large")
)

type EventType string

const (
	EventDown  EventType = "down"
	EventMove  EventType = "move"
	EventUp    EventType = "up"
	EventLeave EventType = "leave"
	EventClear EventType = "clear"
)

// Event is one recorded pointer input in client coordinates.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// Replay runs events through a fresh pad and returns the last payload it
// emitted, or "" when nothing was emitted.
func Replay(w, h int, bounds Rect, events []Event, opts ...Option) (string, error) {
	if !FitsSurface(w, h) {
		return "", errors.Wrapf(ErrSurfaceTooLarge, "%dx%d exceeds %dx%d", w, h, MaxWidth, MaxHeight)
	}
	opts = append([]Option{WithBounds(bounds)}, opts...)
	pad := NewPad(w, h, opts...)
	if pad.Inert() {
		return "", ErrInert
	}

	for i, ev := range events {
		switch ev.Type {
		case EventDown:
			pad.PointerDown(ev.X, ev.Y)
		case EventMove:
			pad.PointerMove(ev.X, ev.Y)
		case EventUp:
			pad.PointerUp()
		case EventLeave:
			pad.PointerLeave()
		case EventClear:
			pad.Clear()
		default:
			return "", errors.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}
	return pad.Payload(), nil
}
