// Package protocol implements the tile link wire format
package protocol

// Version represents the tilelink protocol version
const Version = "0.1.0"

// Wire constants
const (
	// Escape opens every command frame. It never starts a response.
	Escape byte = 0xFF

	// Ready is sent by the device before each payload chunk it is prepared to receive.
	Ready byte = 0xAA
)

// Command identifies a request frame
type Command byte

const (
	CmdGetImageCount Command = 0x01
	CmdGetImage      Command = 0x02
)

func (c Command) String() string {
	switch c {
	case CmdGetImageCount:
		return "get_image_count"
	case CmdGetImage:
		return "get_image"
	}
	return "unknown"
}

// Frame and reply sizes
const (
	CountFrameSize   = 2 // escape + command
	ImageFrameSize   = 4 // escape + command + index lo/hi
	CountReplySize   = 2 // count lo/hi
	HeaderSize       = 2 // x, y
	HeaderSizeSized  = 4 // x, y, w, h (checked mode)
	TrailerSize      = 2 // crc hi/lo (checked mode)
	MaxHeaderSize    = HeaderSizeSized
	MaxFrameSize     = ImageFrameSize
	MaxTileDimension = 255
	MaxIndex         = 0xFFFF // GetImage index is 16 bits
)
