// Package serial opens the host end of the tile link
package serial

import (
	"fmt"
	"io"
	"strings"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes for the simulator and tests
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and untransmitted output
	Flush() error
}

// Parity setting names accepted in Config
const (
	ParityNone = "none"
	ParityOdd  = "odd"
	ParityEven = "even"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate; the panel firmware runs its UART at 256000
	Baud int

	// Parity is one of ParityNone, ParityOdd, ParityEven; empty means none
	Parity string

	// Read timeout in milliseconds (0 = blocking). A read that times out
	// returns an error for which os.IsTimeout is true.
	ReadTimeout int
}

// DefaultBaud is the line rate of the panel firmware
const DefaultBaud = 256000

// DefaultConfig returns the configuration the panel firmware expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		Parity:      ParityNone,
		ReadTimeout: 100,
	}
}

// Validate checks the configuration before opening a port
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("serial: no device given")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("serial: invalid baud rate %d", c.Baud)
	}
	switch strings.ToLower(c.Parity) {
	case "", ParityNone, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("serial: unknown parity %q", c.Parity)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("serial: negative read timeout")
	}
	return nil
}

// timeoutError is returned by reads that hit the configured timeout
type timeoutError struct{}

func (timeoutError) Error() string   { return "serial: read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// ErrTimeout is the error returned when a read times out
var ErrTimeout error = timeoutError{}
