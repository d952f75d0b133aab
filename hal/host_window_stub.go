//go:build !tinygo && !cgo

package hal

import (
	"errors"
	"image"
)

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	Title     string
	Width     int
	Height    int
	Scale     int
	TPS       int
	Highlight func() (image.Rectangle, bool)
}

func RunWindow(_ WindowConfig, _ func(h HAL) func() error) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1, or pass -headless)")
}
