package canvas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"tinygo.org/x/drivers"

	"vusen/hal"
)

var (
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black = color.RGBA{A: 0xFF}
)

func countColor(s *RGB565, c color.RGBA) int {
	n := 0
	b := s.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if s.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestStrokeLineEndpoints(t *testing.T) {
	s := NewRGB565(20, 20)
	s.Fill(white)
	s.StrokeLine(2, 3, 12, 8, 1, black)

	if got := s.RGBAAt(2, 3); got != black {
		t.Fatalf("start pixel = %v, want black", got)
	}
	if got := s.RGBAAt(12, 8); got != black {
		t.Fatalf("end pixel = %v, want black", got)
	}
	// Bresenham visits max(dx, dy)+1 pixels.
	if n := countColor(s, black); n != 11 {
		t.Fatalf("line pixels = %d, want 11", n)
	}
}

func TestStrokeLineSquarePen(t *testing.T) {
	s := NewRGB565(10, 10)
	s.Fill(white)
	s.StrokeLine(2, 5, 6, 5, 2, black)

	if n := countColor(s, black); n != 5*2+2 {
		t.Fatalf("pen-2 pixels = %d, want 12", n)
	}
	if got := s.RGBAAt(7, 6); got != black {
		t.Fatalf("pen corner (7,6) = %v, want black", got)
	}
	if got := s.RGBAAt(2, 4); got != white {
		t.Fatalf("(2,4) = %v, want white", got)
	}
}

func TestStrokeLineClipsOutside(t *testing.T) {
	s := NewRGB565(4, 4)
	s.Fill(white)
	s.StrokeLine(-10, -10, 20, 20, 3, black)
	if got := s.RGBAAt(2, 2); got != black {
		t.Fatalf("diagonal pixel = %v, want black", got)
	}
}

func TestFillRectClips(t *testing.T) {
	s := NewRGB565(5, 5)
	s.FillRect(image.Rect(3, 3, 10, 10), white)
	if n := countColor(s, white); n != 4 {
		t.Fatalf("filled pixels = %d, want 4", n)
	}
}

type fakeFramebuffer struct {
	w, h int
	buf  []byte
}

func (f *fakeFramebuffer) Width() int              { return f.w }
func (f *fakeFramebuffer) Height() int             { return f.h }
func (f *fakeFramebuffer) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *fakeFramebuffer) StrideBytes() int        { return f.w * 2 }
func (f *fakeFramebuffer) Buffer() []byte          { return f.buf }
func (f *fakeFramebuffer) ClearRGB(r, g, b uint8)  {}
func (f *fakeFramebuffer) Present() error          { return nil }

func TestFromFramebufferSharesMemory(t *testing.T) {
	fb := &fakeFramebuffer{w: 2, h: 2, buf: make([]byte, 8)}
	s := FromFramebuffer(fb)
	if s == nil {
		t.Fatal("expected a view")
	}
	s.SetPixel(1, 1, white)
	if fb.buf[6] != 0xFF || fb.buf[7] != 0xFF {
		t.Fatalf("framebuffer bytes = %v, want white at (1,1)", fb.buf)
	}
	if FromFramebuffer(nil) != nil {
		t.Fatal("nil framebuffer should give nil view")
	}
}

func TestRegionOffsetsAndClips(t *testing.T) {
	s := NewRGB565(10, 10)
	r := NewRegion(s, image.Rect(2, 3, 6, 5))
	if w, h := r.Size(); w != 4 || h != 2 {
		t.Fatalf("Size() = %d,%d, want 4,2", w, h)
	}

	r.SetPixel(0, 0, white)
	if got := s.RGBAAt(2, 3); got != white {
		t.Fatalf("(2,3) = %v, want white", got)
	}
	r.SetPixel(4, 0, white)
	if got := s.RGBAAt(6, 3); got == white {
		t.Fatal("pixel outside region was written")
	}

	if err := r.FillRectangle(-5, -5, 100, 100, white); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}
	if n := countColor(s, white); n != 8 {
		t.Fatalf("white pixels = %d, want 8", n)
	}

	r.SetScroll(1)
	if err := r.SetRotation(drivers.Rotation90); err != nil {
		t.Fatalf("SetRotation: %v", err)
	}
	if n := countColor(s, white); n != 8 {
		t.Fatalf("white pixels after scroll/rotate = %d, want 8", n)
	}
}

func TestDrawTextMarksPixels(t *testing.T) {
	s := NewRGB565(60, LineHeight)
	s.Fill(white)
	DrawText(s.Displayer(), 0, 0, "Start", black)
	if countColor(s, black) == 0 {
		t.Fatal("expected glyph pixels")
	}
	if w := TextWidth("Start"); w <= TextWidth("S") {
		t.Fatalf("TextWidth(Start) = %d, want more than one glyph", w)
	}
}

func TestFitRect(t *testing.T) {
	tests := []struct {
		dst, src, want image.Rectangle
	}{
		{image.Rect(0, 0, 400, 300), image.Rect(0, 0, 800, 600), image.Rect(0, 0, 400, 300)},
		{image.Rect(0, 0, 400, 400), image.Rect(0, 0, 800, 600), image.Rect(0, 50, 400, 350)},
		{image.Rect(10, 0, 410, 100), image.Rect(0, 0, 800, 600), image.Rect(143, 0, 276, 100)},
		{image.Rect(0, 0, 0, 10), image.Rect(0, 0, 8, 6), image.Rectangle{}},
	}
	for _, tt := range tests {
		if got := FitRect(tt.dst, tt.src); got != tt.want {
			t.Fatalf("FitRect(%v, %v) = %v, want %v", tt.dst, tt.src, got, tt.want)
		}
	}
}

func TestScaleIntoHalvesBitmap(t *testing.T) {
	src := NewRGB565(8, 6)
	src.Fill(white)
	src.FillRect(image.Rect(0, 0, 4, 6), black)

	dst := NewRGB565(4, 4)
	got := ScaleInto(dst, dst.Bounds(), src)
	if want := image.Rect(0, 0, 4, 3); got != want {
		t.Fatalf("ScaleInto rect = %v, want %v", got, want)
	}
	if c := dst.RGBAAt(0, 1); c != black {
		t.Fatalf("left half = %v, want black", c)
	}
	if c := dst.RGBAAt(3, 1); c != white {
		t.Fatalf("right half = %v, want white", c)
	}
	if c := dst.RGBAAt(0, 3); c != (color.RGBA{A: 0xFF}) {
		t.Fatalf("letterbox row = %v, want untouched black", c)
	}
}

func TestNewAndParseKind(t *testing.T) {
	k, err := ParseKind("")
	if err != nil || k != KindRaster {
		t.Fatalf("ParseKind(\"\") = %q, %v", k, err)
	}
	if _, err := ParseKind("opengl"); err == nil {
		t.Fatal("expected error for unknown renderer")
	}
	if _, err := New(KindRaster, 0, 10); err == nil {
		t.Fatal("expected error for empty surface")
	}
	s, err := New(KindVector, 16, 16)
	if err != nil {
		t.Fatalf("New(vector): %v", err)
	}
	if _, ok := s.(*Vector); !ok {
		t.Fatalf("New(vector) = %T", s)
	}
}

func TestVectorStrokeDarkensLine(t *testing.T) {
	v := NewVector(32, 16)
	defer v.Close()
	v.Fill(white)
	v.StrokeLine(4, 8, 28, 8, 4, black)

	img := v.Image()
	r, _, _, a := img.At(16, 8).RGBA()
	if a == 0 || r > 0x8000 {
		t.Fatalf("line pixel r=%#x a=%#x, want dark and opaque", r, a)
	}
	r, _, _, _ = img.At(16, 1).RGBA()
	if r < 0xF000 {
		t.Fatalf("background pixel r=%#x, want white", r)
	}
}

func TestEncodePNG(t *testing.T) {
	s := NewRGB565(3, 2)
	s.Fill(white)
	var buf bytes.Buffer
	if err := EncodePNG(&buf, s); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("decoded bounds = %v", b)
	}
}

type brokenSurface struct {
	*RGB565
	err error
}

func (b brokenSurface) Err() error { return b.err }

func TestEncodePNGReportsDrawError(t *testing.T) {
	want := errors.New("stroke failed")
	var buf bytes.Buffer
	if err := EncodePNG(&buf, brokenSurface{RGB565: NewRGB565(2, 2), err: want}); !errors.Is(err, want) {
		t.Fatalf("EncodePNG error = %v, want %v", err, want)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %d bytes for a failed surface", buf.Len())
	}

	for _, kind := range []Kind{KindRaster, KindVector} {
		s, err := New(kind, 20, 20)
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		s.StrokeLine(1, 1, 18, 18, 2, black)
		if err := s.Err(); err != nil {
			t.Fatalf("%s: Err after stroke = %v", kind, err)
		}
	}
}
