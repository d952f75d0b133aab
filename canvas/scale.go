package canvas

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FitRect returns the largest rectangle with src's aspect ratio that fits in
// dst, centred.
func FitRect(dst image.Rectangle, src image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}

	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// ScaleInto copies src into the part of r that keeps its aspect ratio, using
// nearest-neighbour sampling. It returns the rectangle written.
func ScaleInto(dst xdraw.Image, r image.Rectangle, src image.Image) image.Rectangle {
	target := FitRect(r, src.Bounds())
	if target.Empty() {
		return target
	}
	xdraw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), xdraw.Src, nil)
	return target
}
