//go:build rp2040

package main

import (
	"errors"
	"image/color"
	"machine"
	"time"

	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// ST7789 commands used by the panel
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVON   = 0x21
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
)

const (
	madctlLandscape = 0x70 // MX | MV | ML
	colmod16bit     = 0x55
)

var errBlockBounds = errors.New("st7789: block outside panel")

// ST7789 drives the Tufty's panel over the 8-bit parallel bus clocked out by
// a PIO state machine. Pixels go straight to panel RAM, there is no frame
// buffer.
type ST7789 struct {
	pl     *piolib.Parallel8Tx
	cs     machine.Pin
	dc     machine.Pin
	rd     machine.Pin
	bl     machine.Pin
	width  int16
	height int16
	line   []byte
}

func NewST7789(pl *piolib.Parallel8Tx, cs, dc, rd, bl machine.Pin, width, height int16) *ST7789 {
	for _, p := range []machine.Pin{cs, dc, rd, bl} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	cs.High()
	rd.High()
	return &ST7789{
		pl:     pl,
		cs:     cs,
		dc:     dc,
		rd:     rd,
		bl:     bl,
		width:  width,
		height: height,
		line:   make([]byte, int(width)*2),
	}
}

// Configure runs the power-up sequence and turns the backlight on
func (d *ST7789) Configure() error {
	steps := []struct {
		cmd   byte
		data  []byte
		delay time.Duration
	}{
		{cmd: cmdSWRESET, delay: 150 * time.Millisecond},
		{cmd: cmdSLPOUT, delay: 10 * time.Millisecond},
		{cmd: cmdCOLMOD, data: []byte{colmod16bit}},
		{cmd: cmdMADCTL, data: []byte{madctlLandscape}},
		{cmd: cmdINVON},
		{cmd: cmdNORON, delay: 10 * time.Millisecond},
		{cmd: cmdDISPON, delay: 10 * time.Millisecond},
	}
	for _, s := range steps {
		if err := d.command(s.cmd, s.data); err != nil {
			return err
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
	d.bl.High()
	return nil
}

func (d *ST7789) command(cmd byte, data []byte) error {
	d.cs.Low()
	defer d.cs.High()
	d.dc.Low()
	if err := d.pl.Write([]byte{cmd}); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	d.dc.High()
	return d.pl.Write(data)
}

func (d *ST7789) window(x, y, w, h int16) error {
	x1, y1 := x+w-1, y+h-1
	if err := d.command(cmdCASET, []byte{byte(x >> 8), byte(x), byte(x1 >> 8), byte(x1)}); err != nil {
		return err
	}
	return d.command(cmdRASET, []byte{byte(y >> 8), byte(y), byte(y1 >> 8), byte(y1)})
}

// DrawRGBBitmap writes a w*h block of RGB565 pixels at (x, y)
func (d *ST7789) DrawRGBBitmap(x, y int16, data []uint16, w, h int16) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > d.width || y+h > d.height || len(data) < int(w)*int(h) {
		return errBlockBounds
	}
	if err := d.window(x, y, w, h); err != nil {
		return err
	}
	d.cs.Low()
	defer d.cs.High()
	d.dc.Low()
	if err := d.pl.Write([]byte{cmdRAMWR}); err != nil {
		return err
	}
	d.dc.High()
	line := d.line[:int(w)*2]
	for row := 0; row < int(h); row++ {
		for i, c := range data[row*int(w) : (row+1)*int(w)] {
			line[2*i] = byte(c >> 8)
			line[2*i+1] = byte(c)
		}
		if err := d.pl.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (d *ST7789) Size() (int16, int16) {
	return d.width, d.height
}

func (d *ST7789) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return
	}
	px := uint16(c.R&0xF8)<<8 | uint16(c.G&0xFC)<<3 | uint16(c.B)>>3
	d.DrawRGBBitmap(x, y, []uint16{px}, 1, 1)
}

// Display is a no-op, writes are not buffered
func (d *ST7789) Display() error {
	return nil
}
