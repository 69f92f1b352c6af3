// Package link is the byte transport between the tile client and its peer.
//
// A Link pairs a best-effort outbound writer with an inbound Source that can
// block until an exact number of bytes has arrived. On hosts the Source is a
// Pump fed by a reader goroutine; on firmware the same Pump is fed by a UART
// polling loop or an interrupt handler calling Produce.
package link

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync/atomic"
	"time"
)

// DebugWriter receives diagnostic messages
type DebugWriter func(string)

// Source delivers inbound bytes in arrival order
type Source interface {
	// ReadFull fills buf completely or returns an *Error
	ReadFull(ctx context.Context, buf []byte) error
}

// Link is one end of a serial connection. It is built once and handed to
// whoever drives the protocol; there is no process-wide instance.
type Link struct {
	w   io.Writer
	src Source

	// Timeout bounds every ReceiveExact call. Zero waits until the context
	// is done.
	Timeout time.Duration

	debug      DebugWriter
	sendErrors uint32
}

// New creates a Link writing to w and reading from src
func New(w io.Writer, src Source) *Link {
	return &Link{
		w:     w,
		src:   src,
		debug: func(string) {},
	}
}

// Open builds a Link over rw with a Pump of ringSize bytes and starts the
// pump goroutine. The goroutine ends when rw returns EOF or a hard error, so
// closing the port stops it.
func Open(ctx context.Context, rw io.ReadWriter, ringSize int) (*Link, *Pump) {
	p := NewPump(make([]byte, ringSize))
	go p.Run(ctx, rw)
	return New(rw, p), p
}

// SetDebugWriter installs a diagnostic output function
func (l *Link) SetDebugWriter(w DebugWriter) {
	if w == nil {
		w = func(string) {}
	}
	l.debug = w
}

// Send writes p to the peer. Delivery is best effort: failures are counted
// and reported to the debug writer but not returned, since the peer's reply
// (or its absence) is what the protocol acts on.
func (l *Link) Send(p []byte) {
	n, err := l.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		atomic.AddUint32(&l.sendErrors, 1)
		l.debug("link: send " + strconv.Itoa(len(p)) + " bytes: " + err.Error())
	}
}

// SendErrors returns the number of failed Send calls
func (l *Link) SendErrors() int {
	return int(atomic.LoadUint32(&l.sendErrors))
}

// ReceiveExact blocks until len(buf) bytes have been read. It fails with an
// *Error on a line fault, a timeout, cancellation or a closed peer; in that
// case the contents of buf are undefined.
func (l *Link) ReceiveExact(ctx context.Context, buf []byte) error {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	err := l.src.ReadFull(ctx, buf)
	if err == nil {
		return nil
	}
	var le *Error
	if !errors.As(err, &le) {
		le = newError(KindIO, err)
	}
	l.debug("link: receive " + strconv.Itoa(len(buf)) + " bytes: " + le.Error())
	return le
}

// Flush drops buffered inbound bytes and any latched fault, returning the
// number of bytes discarded. It is a no-op for sources that do not buffer.
func (l *Link) Flush() int {
	if d, ok := l.src.(interface{ Discard() int }); ok {
		n := d.Discard()
		if n > 0 {
			l.debug("link: flushed " + strconv.Itoa(n) + " bytes")
		}
		return n
	}
	return 0
}

// ctxError maps a finished context to a link error
func ctxError(ctx context.Context) *Error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}
	return newError(KindCanceled, err)
}
