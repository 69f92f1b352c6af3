package tile

import (
	"encoding/binary"
	"image/color"
)

// Color is a 16-bit RGB-565 pixel: 5 bits red, 6 green, 5 blue
type Color uint16

// RGBA implements color.Color
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := ToRGB(uint16(c))
	r = uint32(r8)
	r |= r << 8
	g = uint32(g8)
	g |= g << 8
	b = uint32(b8)
	b |= b << 8
	return r, g, b, 0xFFFF
}

// Model converts arbitrary colors to RGB-565
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return c
	}
	return Color(FromColor(c))
})

// RGB565 packs 8-bit channels into an RGB-565 value
func RGB565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

// ToRGB expands an RGB-565 value to 8-bit channels
func ToRGB(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// ToRGBA expands an RGB-565 value to an opaque color.RGBA
func ToRGBA(p uint16) color.RGBA {
	r, g, b := ToRGB(p)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// FromColor converts c to RGB-565, ignoring alpha
func FromColor(c color.Color) uint16 {
	if rgba, ok := c.(color.RGBA); ok {
		return RGB565(rgba.R, rgba.G, rgba.B)
	}
	r, g, b, _ := c.RGBA()
	return RGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Decode converts little-endian pixel bytes into dst and returns the number
// of pixels written. A trailing odd byte is ignored.
func Decode(dst []uint16, src []byte) int {
	n := len(src) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint16(src[2*i:])
	}
	return n
}

// AppendEncoded appends pix to dst as little-endian pixel bytes
func AppendEncoded(dst []byte, pix []uint16) []byte {
	for _, p := range pix {
		dst = binary.LittleEndian.AppendUint16(dst, p)
	}
	return dst
}
