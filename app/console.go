package app

import (
	"image"
	"image/color"
	"strings"

	"vusen/canvas"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const consoleHistory = 64

var consoleBg = color.RGBA{A: 0xFF}

// Console is the scrolling text pane at the bottom of the window. The newest
// line is always on the last row once the pane is full.
type Console struct {
	dst    *canvas.RGB565
	region *canvas.Region
	rows   int
	cols   int
	lines  []string
}

// NewConsole clears r in dst and attaches a console to it.
func NewConsole(dst *canvas.RGB565, r image.Rectangle) *Console {
	region := canvas.NewRegion(dst, r)
	c := &Console{
		dst:    dst,
		region: region,
		rows:   max(region.Rect().Dy()/canvas.LineHeight, 1),
		cols:   max(region.Rect().Dx()/max(canvas.TextWidth("0"), 1), 1),
	}
	c.redraw()
	return c
}

// Rows returns the number of visible lines.
func (c *Console) Rows() int { return c.rows }

// Println appends one line and redraws the pane.
func (c *Console) Println(s string) {
	c.lines = append(c.lines, s)
	if len(c.lines) > consoleHistory {
		c.lines = append(c.lines[:0], c.lines[len(c.lines)-consoleHistory:]...)
	}
	c.redraw()
}

// Lines returns the most recent lines, oldest first.
func (c *Console) Lines() []string {
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// redraw repaints the last rows lines top to bottom through a fresh
// terminal. Lines are cut to the pane width so the terminal never wraps.
func (c *Console) redraw() {
	c.dst.FillRect(c.region.Rect(), consoleBg)

	visible := c.lines
	if len(visible) > c.rows {
		visible = visible[len(visible)-c.rows:]
	}
	if len(visible) == 0 {
		return
	}
	cut := make([]string, len(visible))
	for i, line := range visible {
		cut[i], _ = takeRunes(line, c.cols-1)
	}

	t := tinyterm.NewTerminal(c.region)
	t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: canvas.LineHeight,
		FontOffset: canvas.Ascent,
	})
	_, _ = t.Write([]byte(strings.Join(cut, "\n")))
}
