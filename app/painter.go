package app

import (
	"fmt"
	"image/color"

	"vusen/canvas"
	"vusen/geom"
)

var (
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black = color.RGBA{A: 0xFF}
)

// Painter draws one more line onto the offscreen bitmap per timer tick.
// It is owned by the UI goroutine.
type Painter struct {
	surface canvas.Surface
	scene   *geom.Scene
	counter int
}

// NewPainter clears s to white and returns a painter drawing into it.
func NewPainter(s canvas.Surface) *Painter {
	s.Fill(white)
	return &Painter{surface: s, scene: geom.NewScene()}
}

// Tick advances the counter, appends the next segment and renders only that
// segment. It returns the new counter.
func (p *Painter) Tick() int {
	p.counter++
	seg := geom.Segment{
		P0:    geom.Pt(20, 20),
		P1:    geom.Pt(100, float64(100+p.counter)),
		Color: black,
		Width: 2,
	}
	from := p.scene.Add(seg)
	p.scene.RenderFrom(p.surface, from)
	return p.counter
}

func (p *Painter) Counter() int            { return p.counter }
func (p *Painter) Scene() *geom.Scene      { return p.scene }
func (p *Painter) Surface() canvas.Surface { return p.surface }

// Label is the text shown under the bitmap.
func (p *Painter) Label() string {
	if p.counter == 0 {
		return "Start"
	}
	return fmt.Sprintf("Counter: %d", p.counter)
}
