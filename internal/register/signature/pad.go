// Package signature captures a handwritten signature on a fixed raster
// surface and emits it as a self-contained PNG data URI.
package signature

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/metrics"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 150

	// Largest surface a pad will allocate, and the largest image Decode
	// accepts. Four times the default in each direction covers high-DPI
	// captures.
	MaxWidth  = 4 * DefaultWidth
	MaxHeight = 4 * DefaultHeight
)

type State int

const (
	StateEmpty State = iota
	StateDrawing
	StateIdle // idle with content
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDrawing:
		return "drawing"
	case StateIdle:
		return "idle-with-content"
	default:
		return "unknown"
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the surface's on-screen bounding box in client coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pad is the signature state machine. A Pad is not safe for concurrent use.
type Pad struct {
	surf     *surface // nil when inert
	state    State
	last     Point
	bounds   Rect
	payload  string
	onChange func(string)
	restore  string
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Pad)

// WithBounds sets the on-screen box client coordinates are mapped through.
func WithBounds(r Rect) Option { return func(p *Pad) { p.bounds = r } }

// WithOnChange registers the callback that receives every emitted payload.
func WithOnChange(fn func(string)) Option { return func(p *Pad) { p.onChange = fn } }

// WithPayload paints a previously emitted payload onto the new surface.
func WithPayload(payload string) Option { return func(p *Pad) { p.restore = payload } }

func WithLogger(l zerolog.Logger) Option { return func(p *Pad) { p.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(p *Pad) { p.metrics = m } }

// NewPad returns a pad over a w x h surface. A non-positive size yields an
// inert pad that ignores all input and never emits.
func NewPad(w, h int, opts ...Option) *Pad {
	p := &Pad{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if w <= 0 || h <= 0 {
		p.log.Warn().Int("width", w).Int("height", h).Msg("no drawing surface; signature pad is inert")
		return p
	}
	if !FitsSurface(w, h) {
		p.log.Warn().Int("width", w).Int("height", h).Msg("drawing surface too large; signature pad is inert")
		return p
	}

	p.surf = newSurface(w, h)
	if p.bounds.Width <= 0 || p.bounds.Height <= 0 {
		p.bounds = Rect{Left: p.bounds.Left, Top: p.bounds.Top, Width: float64(w), Height: float64(h)}
	}

	if p.restore != "" {
		img, err := Decode(p.restore)
		if err != nil {
			p.log.Warn().Err(err).Msg("saved signature could not be restored")
		} else {
			p.surf.paint(img)
			p.state = StateIdle
			p.payload = p.restore
		}
	}
	return p
}

// FitsSurface reports whether a w x h raster is within MaxWidth x MaxHeight.
func FitsSurface(w, h int) bool { return w <= MaxWidth && h <= MaxHeight }

func (p *Pad) State() State { return p.state }

func (p *Pad) Inert() bool { return p.surf == nil }

// Payload returns the last emitted payload.
func (p *Pad) Payload() string { return p.payload }

// Image returns the live surface, or nil for an inert pad.
func (p *Pad) Image() image.Image {
	if p.surf == nil {
		return nil
	}
	return p.surf.img
}

func (p *Pad) PointerDown(clientX, clientY float64) {
	if p.surf == nil {
		return
	}
	p.last = p.toSurface(clientX, clientY)
	p.state = StateDrawing
}

func (p *Pad) PointerMove(clientX, clientY float64) {
	if p.surf == nil || p.state != StateDrawing {
		return
	}
	next := p.toSurface(clientX, clientY)
	p.surf.segment(p.last, next)
	p.last = next
}

func (p *Pad) PointerUp() { p.endStroke() }

func (p *Pad) PointerLeave() { p.endStroke() }

// Clear erases the surface, redraws the chrome and emits an empty payload.
func (p *Pad) Clear() {
	if p.surf == nil {
		return
	}
	p.surf.paintChrome()
	p.state = StateEmpty
	p.emit("")
}

func (p *Pad) endStroke() {
	if p.surf == nil || p.state != StateDrawing {
		return
	}
	p.state = StateIdle

	payload, err := Encode(p.surf.img)
	if err != nil {
		p.log.Error().Stack().Err(err).Msg("encode signature")
		return
	}
	p.metrics.SignatureEncoded()
	p.emit(payload)
}

func (p *Pad) emit(payload string) {
	p.payload = payload
	if p.onChange != nil {
		p.onChange(payload)
	}
}

func (p *Pad) toSurface(clientX, clientY float64) Point {
	b := p.bounds
	return Point{
		X: (clientX - b.Left) * float64(p.surf.w) / b.Width,
		Y: (clientY - b.Top) * float64(p.surf.h) / b.Height,
	}
}
