package canvas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"
)

// Vector is an antialiased surface backed by a gg drawing context.
type Vector struct {
	dc *gg.Context
	w  int
	h  int

	// snapshot caches dc.Image() until the next draw.
	snapshot image.Image

	// err is the first stroke failure.
	err error
}

var _ Surface = (*Vector)(nil)

// NewVector allocates a w x h surface, initially transparent.
func NewVector(w, h int) *Vector {
	dc := gg.NewContext(w, h)
	dc.SetLineCap(gg.LineCapSquare)
	return &Vector{dc: dc, w: w, h: h}
}

func (v *Vector) Bounds() image.Rectangle { return image.Rect(0, 0, v.w, v.h) }

func (v *Vector) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= v.w || y < 0 || y >= v.h {
		return
	}
	v.dc.SetPixel(x, y, gg.FromColor(c))
	v.snapshot = nil
}

func (v *Vector) StrokeLine(x0, y0, x1, y1, width float64, c color.RGBA) {
	if width <= 0 {
		width = 1
	}
	v.dc.SetColor(c)
	v.dc.SetLineWidth(width)
	v.dc.DrawLine(x0, y0, x1, y1)
	if err := v.dc.Stroke(); err != nil && v.err == nil {
		v.err = fmt.Errorf("canvas: stroke (%g,%g)-(%g,%g): %w", x0, y0, x1, y1, err)
	}
	v.snapshot = nil
}

func (v *Vector) Fill(c color.RGBA) {
	v.dc.ClearWithColor(gg.FromColor(c))
	v.snapshot = nil
}

// Err returns the first drawing error since the surface was created.
func (v *Vector) Err() error { return v.err }

// Image returns a copy of the current pixels.
func (v *Vector) Image() image.Image {
	if v.snapshot == nil {
		v.snapshot = v.dc.Image()
	}
	return v.snapshot
}

// SavePNG writes the surface to path.
func (v *Vector) SavePNG(path string) error {
	return v.dc.SavePNG(path)
}

// Close releases the drawing context.
func (v *Vector) Close() error {
	return v.dc.Close()
}
