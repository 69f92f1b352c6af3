package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is the build-time agreement between device and host on tile
// geometry and chunking. Both ends must use the same values.
type Format struct {
	Width  int // tile width in pixels
	Height int // tile height in pixels
	Chunk  int // payload bytes per ready handshake

	// Checked selects the sized header (x, y, w, h) and the CRC16 trailer,
	// which lets the device notice a geometry mismatch and stay aligned.
	Checked bool
}

// DefaultFormat matches the 128x128 panel firmware: one tile per screen,
// 1 KiB chunks.
var DefaultFormat = Format{
	Width:  128,
	Height: 128,
	Chunk:  1024,
}

// Validate reports whether f can be used on the wire
func (f Format) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalidFormat, f.Width, f.Height)
	}
	if f.Chunk <= 0 || f.Chunk%2 != 0 {
		return fmt.Errorf("%w: chunk size %d must be a positive even number", ErrInvalidFormat, f.Chunk)
	}
	if f.Checked && (f.Width > MaxTileDimension || f.Height > MaxTileDimension) {
		return fmt.Errorf("%w: checked tiles are limited to %dx%d", ErrInvalidFormat, MaxTileDimension, MaxTileDimension)
	}
	return nil
}

// PayloadSize returns the number of pixel bytes in one tile
func (f Format) PayloadSize() int {
	return f.Width * f.Height * 2
}

// Chunks returns the number of ready handshakes per tile
func (f Format) Chunks() int {
	return chunksFor(f.PayloadSize(), f.Chunk)
}

// ChunkLen returns the length of chunk i. Only the last chunk may be short.
func (f Format) ChunkLen(i int) int {
	return chunkLen(f.PayloadSize(), f.Chunk, i)
}

// HeaderSize returns the response header length for this format
func (f Format) HeaderSize() int {
	if f.Checked {
		return HeaderSizeSized
	}
	return HeaderSize
}

// String renders the format the way ParseSize accepts it, plus options
func (f Format) String() string {
	s := strconv.Itoa(f.Width) + "x" + strconv.Itoa(f.Height) + "/" + strconv.Itoa(f.Chunk)
	if f.Checked {
		s += "+crc"
	}
	return s
}

func chunksFor(payload, chunk int) int {
	if chunk <= 0 {
		return 0
	}
	return (payload + chunk - 1) / chunk
}

func chunkLen(payload, chunk, i int) int {
	rem := payload - i*chunk
	if rem > chunk {
		return chunk
	}
	if rem < 0 {
		return 0
	}
	return rem
}

// ParseSize parses a "WIDTHxHEIGHT" string such as "128x128"
func ParseSize(s string) (width, height int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: expected WIDTHxHEIGHT", s)
	}
	if width, err = strconv.Atoi(ws); err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	if height, err = strconv.Atoi(hs); err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return width, height, nil
}
