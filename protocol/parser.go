package protocol

// Request is a decoded command frame
type Request struct {
	Command Command
	Index   uint16 // GetImage only
}

type parseState int

const (
	stateEscape  parseState = iota // hunting for the escape byte
	stateCommand                   // escape seen, waiting for command code
	stateIndexLo                   // GetImage, waiting for index low byte
	stateIndexHi                   // GetImage, waiting for index high byte
)

// Parser decodes command frames one byte at a time.
//
// Bytes outside a frame are skipped until the next escape byte, which is how
// the host side recovers from line noise or a device reset mid-frame.
type Parser struct {
	state   parseState
	lo      byte
	skipped int
}

// Parse consumes one byte. ok is true when b completed a frame.
func (p *Parser) Parse(b byte) (req Request, ok bool) {
	switch p.state {
	case stateEscape:
		if b == Escape {
			p.state = stateCommand
		} else {
			p.skipped++
		}
	case stateCommand:
		switch Command(b) {
		case CmdGetImageCount:
			p.state = stateEscape
			return Request{Command: CmdGetImageCount}, true
		case CmdGetImage:
			p.state = stateIndexLo
		default:
			if b != Escape {
				// unknown command, resync on the next escape
				p.skipped += 2
				p.state = stateEscape
			}
		}
	case stateIndexLo:
		p.lo = b
		p.state = stateIndexHi
	case stateIndexHi:
		p.state = stateEscape
		return Request{Command: CmdGetImage, Index: uint16(p.lo) | uint16(b)<<8}, true
	}
	return Request{}, false
}

// Reset drops any partially parsed frame
func (p *Parser) Reset() {
	p.state = stateEscape
	p.lo = 0
}

// Idle reports whether the parser is between frames
func (p *Parser) Idle() bool {
	return p.state == stateEscape
}

// Skipped returns the number of bytes discarded while hunting for frames
func (p *Parser) Skipped() int {
	return p.skipped
}
