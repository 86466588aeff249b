package signature

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

var (
	Background = color.RGBA{R: 0xf8, G: 0xf9, B: 0xfa, A: 0xff}
	Border     = color.RGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	Ink        = color.RGBA{A: 0xff}
)

// PenWidth is the stroke width in surface pixels.
const PenWidth = 2.0

// capSides is how many edges approximate a round cap.
const capSides = 16

type surface struct {
	img *image.RGBA
	w   int
	h   int
}

func newSurface(w, h int) *surface {
	s := &surface{img: image.NewRGBA(image.Rect(0, 0, w, h)), w: w, h: h}
	s.paintChrome()
	return s
}

// paintChrome fills the background and draws the 1px border.
func (s *surface) paintChrome() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	for x := 0; x < s.w; x++ {
		s.img.SetRGBA(x, 0, Border)
		s.img.SetRGBA(x, s.h-1, Border)
	}
	for y := 0; y < s.h; y++ {
		s.img.SetRGBA(0, y, Border)
		s.img.SetRGBA(s.w-1, y, Border)
	}
}

// segment strokes a line from a to b with round caps and joins.
func (s *surface) segment(a, b Point) {
	r := vector.NewRasterizer(s.w, s.h)
	half := PenWidth / 2

	dx, dy := b.X-a.X, b.Y-a.Y
	if l := math.Hypot(dx, dy); l > 0 {
		nx, ny := -dy/l*half, dx/l*half
		// Same winding as the caps so overlaps add instead of cancelling.
		r.MoveTo(f32(a.X-nx), f32(a.Y-ny))
		r.LineTo(f32(b.X-nx), f32(b.Y-ny))
		r.LineTo(f32(b.X+nx), f32(b.Y+ny))
		r.LineTo(f32(a.X+nx), f32(a.Y+ny))
		r.ClosePath()
	}
	disc(r, a, half)
	disc(r, b, half)

	r.Draw(s.img, s.img.Bounds(), image.NewUniform(Ink), image.Point{})
}

func disc(r *vector.Rasterizer, c Point, radius float64) {
	for i := 0; i <= capSides; i++ {
		theta := 2 * math.Pi * float64(i) / capSides
		x, y := c.X+radius*math.Cos(theta), c.Y+radius*math.Sin(theta)
		if i == 0 {
			r.MoveTo(f32(x), f32(y))
			continue
		}
		r.LineTo(f32(x), f32(y))
	}
	r.ClosePath()
}

// paint draws src over the whole surface, scaling it when sizes differ.
func (s *surface) paint(src image.Image) {
	if src.Bounds().Dx() == s.w && src.Bounds().Dy() == s.h {
		draw.Draw(s.img, s.img.Bounds(), src, src.Bounds().Min, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(s.img, s.img.Bounds(), src, src.Bounds(), xdraw.Over, nil)
}

func f32(v float64) float32 { return float32(v) }
