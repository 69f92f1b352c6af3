package protocol

import "encoding/binary"

// AppendGetImageCount appends a GetImageCount frame to dst
func AppendGetImageCount(dst []byte) []byte {
	return append(dst, Escape, byte(CmdGetImageCount))
}

// AppendGetImage appends a GetImage frame for tile index to dst.
// The index goes out least significant byte first.
func AppendGetImage(dst []byte, index uint16) []byte {
	dst = append(dst, Escape, byte(CmdGetImage))
	return binary.LittleEndian.AppendUint16(dst, index)
}

// AppendCount appends the GetImageCount reply
func AppendCount(dst []byte, count uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, count)
}

// DecodeCount decodes a GetImageCount reply
func DecodeCount(b []byte) (uint16, error) {
	if len(b) < CountReplySize {
		return 0, ErrShortFrame
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Header is the fixed prefix of a GetImage reply
type Header struct {
	X, Y          uint8
	Width, Height int // one byte each on the wire, checked mode only
}

// AppendHeader appends the reply header for f. Width and Height are only
// written in checked mode.
func (f Format) AppendHeader(dst []byte, h Header) []byte {
	dst = append(dst, h.X, h.Y)
	if f.Checked {
		dst = append(dst, uint8(h.Width), uint8(h.Height))
	}
	return dst
}

// DecodeHeader decodes a reply header of f.HeaderSize() bytes. Without a
// sized header the dimensions are taken from f.
func (f Format) DecodeHeader(b []byte) (Header, error) {
	if len(b) < f.HeaderSize() {
		return Header{}, ErrShortFrame
	}
	h := Header{X: b[0], Y: b[1]}
	if f.Checked {
		h.Width, h.Height = int(b[2]), int(b[3])
	} else {
		h.Width, h.Height = f.Width, f.Height
	}
	return h, nil
}

// Matches reports whether the header announces f's tile size
func (f Format) Matches(h Header) bool {
	if !f.Checked {
		return true
	}
	return h.Width == f.Width && h.Height == f.Height
}

// PayloadSizeOf returns the pixel byte count a header announces
func PayloadSizeOf(h Header) int {
	return h.Width * h.Height * 2
}

// ChunksOf returns how many ready handshakes a sender following h will expect
func (f Format) ChunksOf(h Header) int {
	return chunksFor(PayloadSizeOf(h), f.Chunk)
}

// ChunkLenOf returns the length of chunk i for the payload announced by h
func (f Format) ChunkLenOf(h Header, i int) int {
	return chunkLen(PayloadSizeOf(h), f.Chunk, i)
}

// AppendTrailer appends the checked-mode CRC, high byte first
func AppendTrailer(dst []byte, crc uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, crc)
}

// DecodeTrailer decodes the checked-mode CRC
func DecodeTrailer(b []byte) (uint16, error) {
	if len(b) < TrailerSize {
		return 0, ErrShortFrame
	}
	return binary.BigEndian.Uint16(b), nil
}
