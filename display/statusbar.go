package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// StatusBar prints one line of text in a strip at the bottom of a display
type StatusBar struct {
	d      drivers.Displayer
	font   tinyfont.Fonter
	height int16

	Foreground color.RGBA
	Background color.RGBA
}

// StatusBarHeight fits the Picopixel font with a pixel of margin
const StatusBarHeight = 8

// NewStatusBar creates a status strip of StatusBarHeight rows on d
func NewStatusBar(d drivers.Displayer) *StatusBar {
	return &StatusBar{
		d:          d,
		font:       &tinyfont.Picopixel,
		height:     StatusBarHeight,
		Foreground: color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Background: color.RGBA{0x20, 0x20, 0x20, 0xFF},
	}
}

// Top returns the first row of the strip
func (s *StatusBar) Top() int16 {
	_, h := s.d.Size()
	return h - s.height
}

// Show replaces the strip's text
func (s *StatusBar) Show(text string) error {
	w, h := s.d.Size()
	for y := s.Top(); y < h; y++ {
		for x := int16(0); x < w; x++ {
			s.d.SetPixel(x, y, s.Background)
		}
	}
	// tinyfont's y is the baseline
	tinyfont.WriteLine(s.d, s.font, 1, h-2, text, s.Foreground)
	return s.d.Display()
}
