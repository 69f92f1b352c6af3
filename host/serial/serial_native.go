//go:build !wasm

package serial

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port     io.ReadWriteCloser
	cfg      *Config
	timeouts bool
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		Parity:      tarmParity(cfg.Parity),
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return newNativePort(port, cfg), nil
}

func newNativePort(port io.ReadWriteCloser, cfg *Config) *NativePort {
	return &NativePort{
		port:     port,
		cfg:      cfg,
		timeouts: cfg.ReadTimeout > 0,
	}
}

func tarmParity(p string) serial.Parity {
	switch strings.ToLower(p) {
	case ParityOdd:
		return serial.ParityOdd
	case ParityEven:
		return serial.ParityEven
	}
	return serial.ParityNone
}

// Read reads data from the serial port. tarm/serial reports an expired read
// timeout as (0, io.EOF); that is turned into ErrTimeout so callers can tell
// it from a closed port.
func (p *NativePort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && err == io.EOF && p.timeouts {
		return 0, ErrTimeout
	}
	return n, err
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards buffered data in both directions
func (p *NativePort) Flush() error {
	if f, ok := p.port.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Config returns the configuration the port was opened with
func (p *NativePort) Config() *Config {
	return p.cfg
}
