package display

import (
	"fmt"

	"tinygo.org/x/drivers"

	"tilelink/tile"
)

// BlockWriter is implemented by drivers that can take a whole RGB565 block in
// one bus transaction, such as st7735.Device and st7789.Device.
type BlockWriter interface {
	DrawRGBBitmap(x, y int16, data []uint16, w, h int16) error
}

// Panel adapts a TinyGo display driver to tile.Display
type Panel struct {
	d drivers.Displayer
}

// NewPanel wraps d
func NewPanel(d drivers.Displayer) *Panel {
	return &Panel{d: d}
}

// SetBlock writes the block with the driver's bitmap call when it has one,
// otherwise pixel by pixel followed by a single Display.
func (p *Panel) SetBlock(x, y, w, h int, pix []uint16) error {
	sw, sh := p.d.Size()
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > int(sw) || y+h > int(sh) {
		return fmt.Errorf("%w: %dx%d at (%d,%d) on %dx%d", ErrOutOfBounds, w, h, x, y, sw, sh)
	}
	if len(pix) < w*h {
		return fmt.Errorf("%w: %d < %d", ErrShortBlock, len(pix), w*h)
	}

	if bw, ok := p.d.(BlockWriter); ok {
		return bw.DrawRGBBitmap(int16(x), int16(y), pix[:w*h], int16(w), int16(h))
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			p.d.SetPixel(int16(x+c), int16(y+r), tile.ToRGBA(pix[r*w+c]))
		}
	}
	return p.d.Display()
}
