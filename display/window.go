//go:build !tinygo && cgo

package display

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// WindowOptions configures RunWindow
type WindowOptions struct {
	Title string
	Scale int // window pixels per framebuffer pixel, default 2

	// Update, if set, runs once per tick on the window goroutine. Returning
	// an error closes the window and is returned by RunWindow.
	Update func() error
}

// RunWindow shows fb in a desktop window until it is closed. It must be
// called from the main goroutine.
func RunWindow(fb *Framebuffer, opts WindowOptions) error {
	scale := opts.Scale
	if scale <= 0 {
		scale = 2
	}
	title := opts.Title
	if title == "" {
		title = "tilelink"
	}

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(fb.Width()*scale, fb.Height()*scale)
	ebiten.SetTPS(30)
	return ebiten.RunGame(&viewer{fb: fb, update: opts.Update})
}

type viewer struct {
	fb      *Framebuffer
	update  func() error
	img     *image.RGBA
	fbImg   *ebiten.Image
	version uint64
}

func (v *viewer) Update() error {
	if v.update != nil {
		return v.update()
	}
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	if v.fbImg == nil {
		v.img = image.NewRGBA(v.fb.Bounds())
		v.fbImg = ebiten.NewImage(v.fb.Width(), v.fb.Height())
		v.version = v.fb.Version() - 1
	}
	if ver := v.fb.Version(); ver != v.version {
		v.fb.ToRGBA(v.img)
		v.fbImg.WritePixels(v.img.Pix)
		v.version = ver
	}
	screen.DrawImage(v.fbImg, nil)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.fb.Width(), v.fb.Height()
}
