package link

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// ReaderSource reads straight from R without buffering. The context is only
// checked between reads, so a blocking R is not interrupted by cancellation.
type ReaderSource struct {
	R io.Reader

	// Idle is the pause after a read that returned (0, nil), as polled
	// UARTs do. Zero means DefaultIdle.
	Idle time.Duration
}

func (s ReaderSource) ReadFull(ctx context.Context, buf []byte) error {
	got := 0
	for got < len(buf) {
		if ctx.Err() != nil {
			return ctxError(ctx)
		}
		n, err := s.R.Read(buf[got:])
		got += n
		if n == 0 && err == nil {
			s.sleep()
			continue
		}
		if err != nil && got < len(buf) {
			switch {
			case os.IsTimeout(err):
				return newError(KindTimeout, err)
			case errors.Is(err, io.EOF):
				return newError(KindClosed, err)
			}
			return newError(KindIO, err)
		}
	}
	return nil
}

func (s ReaderSource) sleep() {
	if s.Idle > 0 {
		time.Sleep(s.Idle)
		return
	}
	time.Sleep(DefaultIdle)
}
