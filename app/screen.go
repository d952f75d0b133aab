package app

import (
	"image"
	"image/color"

	"vusen/canvas"
)

// Window layout in framebuffer pixels.
const (
	ScreenWidth  = 400
	ScreenHeight = 440

	ButtonText = "DANGER!"
)

var (
	BitmapArea  = image.Rect(0, 0, 400, 300)
	LabelArea   = image.Rect(0, 300, 400, 322)
	ButtonArea  = image.Rect(150, 322, 250, 348)
	ConsoleArea = image.Rect(0, 356, 400, 440)
)

const labelBaselineY = 304

var (
	windowBg    = color.RGBA{R: 0xEF, G: 0xEF, B: 0xEF, A: 0xFF}
	buttonFace  = color.RGBA{R: 0xDC, G: 0xDC, B: 0xDC, A: 0xFF}
	buttonDown  = color.RGBA{R: 0xB8, G: 0xB8, B: 0xB8, A: 0xFF}
	buttonFrame = color.RGBA{R: 0x70, G: 0x70, B: 0x70, A: 0xFF}
)

// screen draws everything but the console onto the framebuffer view.
type screen struct {
	dst  *canvas.RGB565
	text *canvas.Region
}

func newScreen(dst *canvas.RGB565) *screen {
	dst.FillRect(image.Rect(0, 0, dst.Width(), ConsoleArea.Min.Y), windowBg)
	return &screen{dst: dst, text: dst.Displayer()}
}

func (s *screen) drawBitmap(src image.Image) {
	s.dst.FillRect(BitmapArea, windowBg)
	canvas.ScaleInto(s.dst, BitmapArea, src)
}

func (s *screen) drawLabel(label string) {
	s.dst.FillRect(LabelArea, windowBg)
	r := image.Rect(LabelArea.Min.X, labelBaselineY, LabelArea.Max.X, LabelArea.Max.Y)
	canvas.DrawTextCentered(s.text, r, label, black)
}

func (s *screen) drawButton(down bool) {
	face := buttonFace
	if down {
		face = buttonDown
	}
	s.dst.FillRect(ButtonArea, face)
	s.dst.StrokeRect(ButtonArea, buttonFrame)

	y := ButtonArea.Min.Y + (ButtonArea.Dy()-canvas.LineHeight)/2
	r := image.Rect(ButtonArea.Min.X, y, ButtonArea.Max.X, ButtonArea.Max.Y)
	canvas.DrawTextCentered(s.text, r, ButtonText, black)
}
