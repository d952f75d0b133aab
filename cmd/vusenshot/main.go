// Command vusenshot runs the painter without a window and writes the
// offscreen bitmap as a PNG.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"vusen/app"
	"vusen/canvas"
)

func main() {
	var ticks int
	var outPath string
	var renderer string
	var width, height int
	flag.IntVar(&ticks, "ticks", 10, "Painter ticks to run.")
	flag.StringVar(&outPath, "out", "vusen.png", "Output PNG path.")
	flag.StringVar(&renderer, "renderer", string(canvas.KindRaster), "Bitmap renderer: raster or vector.")
	flag.IntVar(&width, "width", 800, "Bitmap width.")
	flag.IntVar(&height, "height", 600, "Bitmap height.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if ticks < 0 {
		fmt.Fprintln(os.Stderr, "error: -ticks must be >= 0")
		os.Exit(2)
	}
	kind, err := canvas.ParseKind(renderer)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if err := run(kind, width, height, ticks, outPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var newSurface = canvas.New

func run(kind canvas.Kind, width, height, ticks int, outPath string) (err error) {
	s, err := newSurface(kind, width, height)
	if err != nil {
		return err
	}
	if c, ok := s.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close surface: %w", cerr)
			}
		}()
	}
	p := app.NewPainter(s)
	for i := 0; i < ticks; i++ {
		p.Tick()
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %q: %w", outPath, err)
	}
	if err := canvas.EncodePNG(f, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %q: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", outPath, err)
	}
	fmt.Printf("%s: %d lines, %dx%d, %s\n", outPath, p.Counter(), width, height, kind)
	return nil
}
