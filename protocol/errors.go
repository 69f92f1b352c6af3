package protocol

import "errors"

var (
	ErrInvalidFormat = errors.New("invalid tile format")
	ErrTileSize      = errors.New("tile size mismatch")
	ErrChecksum      = errors.New("tile checksum mismatch")
	ErrShortFrame    = errors.New("frame too short")
)
