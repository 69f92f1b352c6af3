package library

import (
	"image"
	"image/color"
)

var bars = []color.RGBA{
	{0xFF, 0xFF, 0xFF, 0xFF},
	{0xFF, 0xFF, 0x00, 0xFF},
	{0x00, 0xFF, 0xFF, 0xFF},
	{0x00, 0xFF, 0x00, 0xFF},
	{0xFF, 0x00, 0xFF, 0xFF},
	{0xFF, 0x00, 0x00, 0xFF},
	{0x00, 0x00, 0xFF, 0xFF},
	{0x00, 0x00, 0x00, 0xFF},
}

// Pattern draws color bars over a gray ramp, used when no images are given
func Pattern(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	split := height * 3 / 4
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if y < split {
				img.SetRGBA(x, y, bars[x*len(bars)/width])
				continue
			}
			v := uint8(x * 255 / max(width-1, 1))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 0xFF})
		}
	}
	return img
}
