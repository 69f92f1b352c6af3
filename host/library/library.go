// Package library turns image files into the tiles the host serves
package library

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tilelink/protocol"
	"tilelink/tile"
)

// Fit selects how an image is brought to panel size
type Fit string

const (
	// FitScale stretches the whole image onto the panel
	FitScale Fit = "scale"
	// FitCrop scales to cover the panel and cuts the overflow evenly
	FitCrop Fit = "crop"
)

// ParseFit validates a fit name
func ParseFit(s string) (Fit, error) {
	switch f := Fit(strings.ToLower(s)); f {
	case FitScale, FitCrop:
		return f, nil
	}
	return "", fmt.Errorf("unknown fit %q (want %q or %q)", s, FitScale, FitCrop)
}

var extensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Library holds the tiles of every loaded image in serving order
type Library struct {
	format protocol.Format
	panel  image.Rectangle
	fit    Fit
	tiles  []*tile.Tile
	images int
}

// New creates an empty library. The panel must be a whole number of tiles
// and every tile origin must fit in a byte.
func New(f protocol.Format, panelWidth, panelHeight int, fit Fit) (*Library, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseFit(string(fit)); err != nil {
		return nil, err
	}
	if panelWidth <= 0 || panelHeight <= 0 ||
		panelWidth%f.Width != 0 || panelHeight%f.Height != 0 {
		return nil, fmt.Errorf("panel %dx%d is not a whole number of %dx%d tiles",
			panelWidth, panelHeight, f.Width, f.Height)
	}
	if panelWidth-f.Width > 0xFF || panelHeight-f.Height > 0xFF {
		return nil, fmt.Errorf("panel %dx%d: tile origins must fit in one byte", panelWidth, panelHeight)
	}
	return &Library{
		format: f,
		panel:  image.Rect(0, 0, panelWidth, panelHeight),
		fit:    fit,
	}, nil
}

// Count returns the number of tiles
func (l *Library) Count() int {
	return len(l.tiles)
}

// Images returns the number of images loaded
func (l *Library) Images() int {
	return l.images
}

// TilesPerImage returns how many tiles one panel-sized image produces
func (l *Library) TilesPerImage() int {
	return (l.panel.Dx() / l.format.Width) * (l.panel.Dy() / l.format.Height)
}

// Tile returns tile i
func (l *Library) Tile(i int) (*tile.Tile, bool) {
	if i < 0 || i >= len(l.tiles) {
		return nil, false
	}
	return l.tiles[i], true
}

// Panel returns the panel rectangle images are fitted to
func (l *Library) Panel() image.Rectangle {
	return l.panel
}

// AddImage fits img to the panel and appends its tiles
func (l *Library) AddImage(img image.Image) int {
	fitted := FitImage(img, l.panel.Dx(), l.panel.Dy(), l.fit)
	tiles := Slice(fitted, l.format.Width, l.format.Height)
	l.tiles = append(l.tiles, tiles...)
	l.images++
	return len(tiles)
}

// AddFile decodes one image file
func (l *Library) AddFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	n := l.AddImage(img)
	glog.V(1).Infof("loaded %s (%s %dx%d) as %d tiles", path, format, img.Bounds().Dx(), img.Bounds().Dy(), n)
	return n, nil
}

// AddPath loads a file, or every image file of a directory in name order
func (l *Library) AddPath(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return l.AddFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		n, err := l.AddFile(filepath.Join(path, name))
		if err != nil {
			glog.Warningf("skipping %s: %v", name, err)
			continue
		}
		total += n
	}
	return total, nil
}

// FitImage returns a width x height copy of img
func FitImage(img image.Image, width, height int, fit Fit) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	src := img.Bounds()
	if src.Dx() == width && src.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}
	if fit == FitCrop {
		src = cropRect(src, width, height)
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	return dst
}

// cropRect returns the centered part of src with the aspect ratio of w:h
func cropRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw*h > sh*w {
		// too wide
		cw := sh * w / h
		x := src.Min.X + (sw-cw)/2
		return image.Rect(x, src.Min.Y, x+cw, src.Max.Y)
	}
	ch := sw * h / w
	y := src.Min.Y + (sh-ch)/2
	return image.Rect(src.Min.X, y, src.Max.X, y+ch)
}

// Slice cuts img into tileWidth x tileHeight tiles in row-major order
func Slice(img *image.RGBA, tileWidth, tileHeight int) []*tile.Tile {
	b := img.Bounds()
	var tiles []*tile.Tile
	for y := b.Min.Y; y < b.Max.Y; y += tileHeight {
		for x := b.Min.X; x < b.Max.X; x += tileWidth {
			tiles = append(tiles, tile.FromImage(img, image.Rect(x, y, x+tileWidth, y+tileHeight)))
		}
	}
	return tiles
}

// Build creates a library from paths. When nothing loads it serves Pattern so
// the device always has something to show.
func Build(f protocol.Format, panelWidth, panelHeight int, fit Fit, paths []string) (*Library, error) {
	lib, err := New(f, panelWidth, panelHeight, fit)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if _, err := lib.AddPath(p); err != nil {
			glog.Warningf("skipping %s: %v", p, err)
		}
	}
	if lib.Count() == 0 {
		glog.Infof("no images loaded, serving the test pattern")
		lib.AddImage(Pattern(panelWidth, panelHeight))
	}
	return lib, nil
}
