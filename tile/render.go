package tile

import (
	"errors"
	"fmt"
)

// ErrDisplayWrite matches every *DisplayError
var ErrDisplayWrite = errors.New("display write failed")

// Display is the panel capability the renderer needs: write a w x h block of
// RGB-565 pixels with its top-left corner at x, y.
type Display interface {
	SetBlock(x, y, w, h int, pix []uint16) error
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(x, y, w, h int, pix []uint16) error

func (f DisplayFunc) SetBlock(x, y, w, h int, pix []uint16) error {
	return f(x, y, w, h, pix)
}

// DisplayError reports a block the display rejected
type DisplayError struct {
	X, Y, Width, Height int
	Err                 error
}

func (e *DisplayError) Error() string {
	return fmt.Sprintf("display write %dx%d at (%d,%d): %v", e.Width, e.Height, e.X, e.Y, e.Err)
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

func (e *DisplayError) Is(target error) bool {
	return target == ErrDisplayWrite
}

// Renderer writes tiles to one display. Only one Renderer may own a display.
type Renderer struct {
	d      Display
	blocks int
}

// NewRenderer creates a renderer for d
func NewRenderer(d Display) *Renderer {
	return &Renderer{d: d}
}

// Render writes t with exactly one block write
func (r *Renderer) Render(t *Tile) error {
	if err := r.d.SetBlock(t.X, t.Y, t.Width, t.Height, t.Pix); err != nil {
		return &DisplayError{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height, Err: err}
	}
	r.blocks++
	return nil
}

// Blocks returns the number of tiles written successfully
func (r *Renderer) Blocks() int {
	return r.blocks
}
