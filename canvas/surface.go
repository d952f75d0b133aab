package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"vusen/geom"
)

// Surface is an offscreen bitmap: a geom.Canvas that can be read back.
type Surface interface {
	geom.Canvas
	Bounds() image.Rectangle
	Fill(c color.RGBA)
	Image() image.Image

	// Err reports the first drawing operation that failed.
	Err() error
}

// Kind names a Surface backend.
type Kind string

const (
	// KindRaster is the integer RGB565 rasterizer.
	KindRaster Kind = "raster"
	// KindVector is the antialiased gg renderer.
	KindVector Kind = "vector"
)

// ParseKind validates a backend name. The empty string selects KindRaster.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindRaster:
		return KindRaster, nil
	case KindVector:
		return KindVector, nil
	default:
		return "", fmt.Errorf("canvas: unknown renderer %q (want %q or %q)", s, KindRaster, KindVector)
	}
}

// New allocates a w x h surface of the given kind.
func New(kind Kind, w, h int) (Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("canvas: invalid size %dx%d", w, h)
	}
	switch kind {
	case "", KindRaster:
		return NewRGB565(w, h), nil
	case KindVector:
		return NewVector(w, h), nil
	default:
		return nil, fmt.Errorf("canvas: unknown renderer %q", kind)
	}
}

// EncodePNG writes the surface contents as PNG.
// A surface that failed to draw is not encoded.
func EncodePNG(w io.Writer, s Surface) error {
	if err := s.Err(); err != nil {
		return err
	}
	if err := png.Encode(w, s.Image()); err != nil {
		return fmt.Errorf("canvas: encode png: %w", err)
	}
	return nil
}
