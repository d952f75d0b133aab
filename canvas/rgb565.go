// Package canvas provides the pixel surfaces the app paints on: an RGB565
// raster (shared with the screen framebuffer), a gg-backed antialiased
// surface, and adapters for the tinyfont/tinyterm text stack.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"vusen/geom"
	"vusen/hal"
)

// RGB565 is a 16bpp pixel buffer. It implements draw.Image and geom.Canvas.
type RGB565 struct {
	w      int
	h      int
	stride int
	buf    []byte
}

var (
	_ draw.Image  = (*RGB565)(nil)
	_ geom.Canvas = (*RGB565)(nil)
	_ Surface     = (*RGB565)(nil)
)

// NewRGB565 allocates a w x h buffer, initially black.
func NewRGB565(w, h int) *RGB565 {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &RGB565{w: w, h: h, stride: w * 2, buf: make([]byte, w*h*2)}
}

// FromFramebuffer returns a view that draws straight into fb's memory.
// It returns nil if fb is not RGB565.
func FromFramebuffer(fb hal.Framebuffer) *RGB565 {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	return &RGB565{w: fb.Width(), h: fb.Height(), stride: fb.StrideBytes(), buf: fb.Buffer()}
}

func (s *RGB565) Width() int  { return s.w }
func (s *RGB565) Height() int { return s.h }

// Pix exposes the raw little-endian pixel bytes.
func (s *RGB565) Pix() []byte { return s.buf }

func (s *RGB565) ColorModel() color.Model { return color.RGBAModel }

func (s *RGB565) Bounds() image.Rectangle { return image.Rect(0, 0, s.w, s.h) }

func (s *RGB565) At(x, y int) color.Color { return s.RGBAAt(x, y) }

// RGBAAt returns the pixel at (x, y), or transparent black outside the buffer.
func (s *RGB565) RGBAAt(x, y int) color.RGBA {
	off, ok := s.offset(x, y)
	if !ok {
		return color.RGBA{}
	}
	r, g, b := hal.RGB888(uint16(s.buf[off]) | uint16(s.buf[off+1])<<8)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

func (s *RGB565) Set(x, y int, c color.Color) {
	s.SetPixel(x, y, color.RGBAModel.Convert(c).(color.RGBA))
}

// SetPixel writes one pixel; out-of-range coordinates are ignored.
func (s *RGB565) SetPixel(x, y int, c color.RGBA) {
	off, ok := s.offset(x, y)
	if !ok {
		return
	}
	pixel := hal.RGB565(c.R, c.G, c.B)
	s.buf[off] = byte(pixel)
	s.buf[off+1] = byte(pixel >> 8)
}

// Image returns s itself.
func (s *RGB565) Image() image.Image { return s }

// Err is always nil; raster drawing cannot fail.
func (s *RGB565) Err() error { return nil }

// Fill paints the whole buffer.
func (s *RGB565) Fill(c color.RGBA) {
	pixel := hal.RGB565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for y := 0; y < s.h; y++ {
		row := y * s.stride
		for x := 0; x < s.w; x++ {
			off := row + x*2
			if off+1 >= len(s.buf) {
				return
			}
			s.buf[off] = lo
			s.buf[off+1] = hi
		}
	}
}

// FillRect paints r clipped to the buffer.
func (s *RGB565) FillRect(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(s.Bounds())
	if r.Empty() {
		return
	}
	pixel := hal.RGB565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * s.stride
		for x := r.Min.X; x < r.Max.X; x++ {
			off := row + x*2
			if off+1 >= len(s.buf) {
				continue
			}
			s.buf[off] = lo
			s.buf[off+1] = hi
		}
	}
}

// StrokeRect outlines r with a one pixel border.
func (s *RGB565) StrokeRect(r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	s.FillRect(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	s.FillRect(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// StrokeLine rasterizes a line with Bresenham's algorithm and a square pen of
// the given width (rounded, minimum 1 pixel).
func (s *RGB565) StrokeLine(x0, y0, x1, y1, width float64, c color.RGBA) {
	pen := int(math.Round(width))
	if pen < 1 {
		pen = 1
	}
	lo := -(pen - 1) / 2
	hi := pen / 2

	ix0, iy0 := int(math.Round(x0)), int(math.Round(y0))
	ix1, iy1 := int(math.Round(x1)), int(math.Round(y1))

	dx := absInt(ix1 - ix0)
	sx := 1
	if ix0 > ix1 {
		sx = -1
	}
	dy := -absInt(iy1 - iy0)
	sy := 1
	if iy0 > iy1 {
		sy = -1
	}
	err := dx + dy

	x, y := ix0, iy0
	for {
		if pen == 1 {
			s.SetPixel(x, y, c)
		} else {
			s.FillRect(image.Rect(x+lo, y+lo, x+hi+1, y+hi+1), c)
		}
		if x == ix1 && y == iy1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func (s *RGB565) offset(x, y int) (int, bool) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return 0, false
	}
	off := y*s.stride + x*2
	if off < 0 || off+1 >= len(s.buf) {
		return 0, false
	}
	return off, true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
