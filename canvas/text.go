package canvas

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Font is the UI font. Concurrent rendering with it is not safe.
var Font tinyfont.Fonter = &proggy.TinySZ8pt7b

const (
	// LineHeight is the vertical advance of one text line in pixels.
	LineHeight = 10
	// Ascent is the baseline offset from the top of a text line.
	Ascent = 6
)

// TextWidth returns the rendered width of s in pixels.
func TextWidth(s string) int {
	_, outbox := tinyfont.LineWidth(Font, s)
	return int(outbox)
}

// DrawText draws s with its top-left corner at (x, y).
func DrawText(d drivers.Displayer, x, y int, s string, c color.RGBA) {
	tinyfont.WriteLine(d, Font, int16(x), int16(y+Ascent), s, c)
}

// DrawTextCentered draws s centred horizontally in r, top-aligned at r.Min.Y.
func DrawTextCentered(d drivers.Displayer, r image.Rectangle, s string, c color.RGBA) {
	x := r.Min.X + (r.Dx()-TextWidth(s))/2
	if x < r.Min.X {
		x = r.Min.X
	}
	DrawText(d, x, r.Min.Y, s, c)
}

// Region is a clipped sub-rectangle of an RGB565 buffer with its own origin.
// It satisfies the display contracts of tinyfont and tinyterm.
type Region struct {
	dst *RGB565
	r   image.Rectangle
}

var (
	_ drivers.Displayer  = (*Region)(nil)
	_ tinyterm.Displayer = (*Region)(nil)
)

// NewRegion returns the part of dst covered by r.
func NewRegion(dst *RGB565, r image.Rectangle) *Region {
	return &Region{dst: dst, r: r.Intersect(dst.Bounds())}
}

// Rect returns the region in dst coordinates.
func (d *Region) Rect() image.Rectangle { return d.r }

func (d *Region) Size() (x, y int16) {
	return int16(d.r.Dx()), int16(d.r.Dy())
}

func (d *Region) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || iy < 0 || ix >= d.r.Dx() || iy >= d.r.Dy() {
		return
	}
	d.dst.SetPixel(d.r.Min.X+ix, d.r.Min.Y+iy, c)
}

func (d *Region) Display() error { return nil }

func (d *Region) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).
		Add(d.r.Min).
		Intersect(d.r)
	d.dst.FillRect(r, c)
	return nil
}

func (d *Region) SetScroll(int16) {}

func (d *Region) SetRotation(drivers.Rotation) error { return nil }

// Displayer exposes the whole buffer to tinyfont.
func (s *RGB565) Displayer() *Region {
	return NewRegion(s, s.Bounds())
}
