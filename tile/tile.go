// Package tile assembles received RGB-565 payloads into rectangular tiles
// and writes them to a display.
package tile

import (
	"image"
	"image/draw"
)

// Tile is a rectangular block of RGB-565 pixels placed at a screen origin.
// Pix is row-major with Width*Height entries.
type Tile struct {
	X, Y          int
	Width, Height int
	Pix           []uint16
}

// New allocates a blank tile at the origin
func New(width, height int) *Tile {
	return &Tile{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height),
	}
}

// At returns the pixel at column c, row r of the tile
func (t *Tile) At(c, r int) uint16 {
	return t.Pix[r*t.Width+c]
}

// Set stores the pixel at column c, row r of the tile
func (t *Tile) Set(c, r int, p uint16) {
	t.Pix[r*t.Width+c] = p
}

// Bounds returns the screen rectangle the tile covers
func (t *Tile) Bounds() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height)
}

// Clone returns a deep copy
func (t *Tile) Clone() *Tile {
	c := *t
	c.Pix = append([]uint16(nil), t.Pix...)
	return &c
}

// Image renders the tile into an *image.RGBA positioned at Bounds()
func (t *Tile) Image() *image.RGBA {
	img := image.NewRGBA(t.Bounds())
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			img.SetRGBA(t.X+c, t.Y+r, ToRGBA(t.At(c, r)))
		}
	}
	return img
}

// Payload appends the tile's pixels to dst in wire order
func (t *Tile) Payload(dst []byte) []byte {
	return AppendEncoded(dst, t.Pix)
}

// FromImage cuts rect out of src and converts it to RGB-565. Parts of rect
// outside src stay black. The tile origin is rect.Min.
func FromImage(src image.Image, rect image.Rectangle) *Tile {
	t := New(rect.Dx(), rect.Dy())
	t.X, t.Y = rect.Min.X, rect.Min.Y

	rgba, ok := src.(*image.RGBA)
	if !ok || !rect.In(src.Bounds()) {
		rgba = image.NewRGBA(rect)
		draw.Draw(rgba, rect, src, rect.Min, draw.Src)
	}
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			t.Set(c, r, FromColor(rgba.RGBAAt(rect.Min.X+c, rect.Min.Y+r)))
		}
	}
	return t
}
