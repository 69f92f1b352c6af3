// Package display holds the pixel sinks tiles are rendered to: an in-memory
// RGB565 framebuffer, an adapter for TinyGo display drivers, a text status
// strip and a desktop viewer window.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"tilelink/tile"
)

var (
	ErrOutOfBounds = errors.New("block outside display")
	ErrShortBlock  = errors.New("block has fewer pixels than its size")
)

// Framebuffer is an RGB565 frame in memory. It implements tile.Display and
// drivers.Displayer and may be read from another goroutine while a renderer
// writes to it.
type Framebuffer struct {
	mu      sync.Mutex
	width   int
	height  int
	pix     []uint16
	version uint64
	shown   uint64
}

// NewFramebuffer creates a black framebuffer
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		width:  width,
		height: height,
		pix:    make([]uint16, width*height),
	}
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }

// Bounds returns the framebuffer rectangle
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// SetBlock copies a w x h block of pixels with its corner at x, y
func (f *Framebuffer) SetBlock(x, y, w, h int, pix []uint16) error {
	if !image.Rect(x, y, x+w, y+h).In(f.Bounds()) || w < 0 || h < 0 {
		return fmt.Errorf("%w: %dx%d at (%d,%d) on %dx%d", ErrOutOfBounds, w, h, x, y, f.width, f.height)
	}
	if len(pix) < w*h {
		return fmt.Errorf("%w: %d < %d", ErrShortBlock, len(pix), w*h)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for r := 0; r < h; r++ {
		copy(f.pix[(y+r)*f.width+x:], pix[r*w:(r+1)*w])
	}
	f.version++
	return nil
}

// Size implements drivers.Displayer
func (f *Framebuffer) Size() (x, y int16) {
	return int16(f.width), int16(f.height)
}

// SetPixel implements drivers.Displayer. Pixels outside the frame are ignored.
func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= f.width || int(y) >= f.height {
		return
	}
	f.mu.Lock()
	f.pix[int(y)*f.width+int(x)] = tile.RGB565(c.R, c.G, c.B)
	f.version++
	f.mu.Unlock()
}

// Display implements drivers.Displayer. The frame is always current, so it
// only counts presentations.
func (f *Framebuffer) Display() error {
	f.mu.Lock()
	f.shown++
	f.mu.Unlock()
	return nil
}

// At returns the pixel at x, y
func (f *Framebuffer) At(x, y int) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pix[y*f.width+x]
}

// Fill sets every pixel to c
func (f *Framebuffer) Fill(c uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pix {
		f.pix[i] = c
	}
	f.version++
}

// Version changes whenever the frame content changes
func (f *Framebuffer) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

// Snapshot copies the frame into dst, growing it if needed
func (f *Framebuffer) Snapshot(dst []uint16) []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cap(dst) < len(f.pix) {
		dst = make([]uint16, len(f.pix))
	}
	dst = dst[:len(f.pix)]
	copy(dst, f.pix)
	return dst
}

// ToRGBA converts the frame into dst, which must cover Bounds()
func (f *Framebuffer) ToRGBA(dst *image.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pix {
		r, g, b := tile.ToRGB(p)
		j := dst.PixOffset(i%f.width, i/f.width)
		dst.Pix[j+0] = r
		dst.Pix[j+1] = g
		dst.Pix[j+2] = b
		dst.Pix[j+3] = 0xFF
	}
}

// Image returns a copy of the frame as an *image.RGBA
func (f *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	f.ToRGBA(img)
	return img
}
