//go:build !tinygo && !cgo

package display

import "errors"

// WindowOptions configures RunWindow
type WindowOptions struct {
	Title  string
	Scale  int
	Update func() error
}

// RunWindow is unavailable without cgo
func RunWindow(_ *Framebuffer, _ WindowOptions) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
