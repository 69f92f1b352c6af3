package tile

import "errors"

// ErrOverflow is returned when more payload arrives than the tile holds
var ErrOverflow = errors.New("tile: payload exceeds tile size")

// Assembler decodes a tile payload that arrives in chunks. It owns one tile
// buffer, allocated up front and overwritten by every Begin.
type Assembler struct {
	tile  Tile
	n     int // pixels decoded
	carry byte
	odd   bool
}

// NewAssembler creates an assembler for width x height tiles
func NewAssembler(width, height int) *Assembler {
	return &Assembler{tile: *New(width, height)}
}

// Begin starts a new tile at origin x, y
func (a *Assembler) Begin(x, y int) {
	a.tile.X, a.tile.Y = x, y
	a.n = 0
	a.odd = false
}

// Write decodes payload bytes. A pixel may be split across two writes.
func (a *Assembler) Write(p []byte) (int, error) {
	written := len(p)
	if a.odd && len(p) > 0 {
		if a.n >= len(a.tile.Pix) {
			return 0, ErrOverflow
		}
		a.tile.Pix[a.n] = uint16(a.carry) | uint16(p[0])<<8
		a.n++
		a.odd = false
		p = p[1:]
	}
	if need := len(p) / 2; a.n+need > len(a.tile.Pix) {
		return 0, ErrOverflow
	}
	a.n += Decode(a.tile.Pix[a.n:], p)
	if len(p)%2 == 1 {
		a.carry = p[len(p)-1]
		a.odd = true
	}
	return written, nil
}

// Remaining returns the number of payload bytes still expected
func (a *Assembler) Remaining() int {
	rem := (len(a.tile.Pix) - a.n) * 2
	if a.odd {
		rem--
	}
	return rem
}

// Complete reports whether every pixel of the tile has been received
func (a *Assembler) Complete() bool {
	return a.n == len(a.tile.Pix) && !a.odd
}

// Tile returns the assembled tile. The result is reused by the next Begin;
// Clone it to keep it.
func (a *Assembler) Tile() *Tile {
	return &a.tile
}
