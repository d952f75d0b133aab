package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"vusen/canvas"
	"vusen/hal"
)

// PanicError is a panic recovered from the UI goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("vusen panic: %v", e.Value)
}

// showPanic logs the panic line by line and paints it over the whole screen.
func showPanic(h hal.HAL, info *PanicError) {
	stack := splitLines(string(info.Stack))

	if l := h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("Vusen Panic: panic=%v", info.Value))
		for _, line := range stack {
			l.WriteLineString(line)
		}
	}

	fb := framebufferOf(h)
	if fb == nil {
		return
	}
	fb.ClearRGB(255, 255, 255)
	view := canvas.FromFramebuffer(fb)
	if view == nil {
		_ = fb.Present()
		return
	}

	lines := []string{
		"Vusen Panic:",
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(stack) > 0 {
		lines = append(lines, "stack:")
		lines = append(lines, stack...)
	} else {
		lines = append(lines, "stack: unavailable")
	}

	d := view.Displayer()
	fg := color.RGBA{A: 255}
	fontWidth := canvas.TextWidth("0")
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}
	cols := max(fb.Width()/fontWidth, 1)
	maxH := fb.Height()

	y := 0
	for _, line := range lines {
		for len(line) > 0 {
			if y+canvas.LineHeight > maxH {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			canvas.DrawText(d, 0, y, chunk, fg)
			y += canvas.LineHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(line, "\t", "  "))
	}
	return out
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
