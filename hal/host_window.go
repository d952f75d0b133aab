//go:build !tinygo && cgo

package hal

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	Scale  int
	TPS    int

	// Highlight, if set, is polled every frame; while it reports true the
	// returned rectangle is outlined on top of the framebuffer.
	Highlight func() (image.Rectangle, bool)
}

var highlightColor = color.RGBA{R: 0xD0, G: 0x20, B: 0x20, A: 0xFF}

// RunWindow starts a desktop window that displays the framebuffer and forwards
// keyboard and mouse input. It blocks until the window closes.
func RunWindow(cfg WindowConfig, newApp func(HAL) func() error) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.TPS <= 0 {
		cfg.TPS = 60
	}

	h := New(cfg.Width, cfg.Height).(*hostHAL)
	step := newApp(h)

	g := &hostGame{h: h, step: step, highlight: cfg.Highlight}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(h.fb.width*cfg.Scale, h.fb.height*cfg.Scale)
	ebiten.SetTPS(cfg.TPS)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h         *hostHAL
	img       *image.RGBA
	fbImg     *ebiten.Image
	step      func() error
	highlight func() (image.Rectangle, bool)

	lastPresent uint64
	copied      bool
}

func (g *hostGame) Update() error {
	g.h.kbd.poll()
	g.h.ptr.poll()
	g.h.t.step()
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
		g.copied = false
	}

	if seq := fb.presentSeq(); !g.copied || seq != g.lastPresent {
		fb.snapshotRGBA(g.img.Pix)
		g.fbImg.WritePixels(g.img.Pix)
		g.lastPresent = seq
		g.copied = true
	}
	screen.DrawImage(g.fbImg, nil)

	if g.highlight == nil {
		return
	}
	if r, ok := g.highlight(); ok && !r.Empty() {
		vector.StrokeRect(screen,
			float32(r.Min.X), float32(r.Min.Y),
			float32(r.Dx()), float32(r.Dy()),
			2, highlightColor, false)
	}
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
