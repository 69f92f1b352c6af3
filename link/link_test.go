package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failWriter struct{ err error }

func (w failWriter) Write(p []byte) (int, error) { return 0, w.err }

type timeoutErr struct{}

func (timeoutErr) Error() string { return "read timeout" }
func (timeoutErr) Timeout() bool { return true }

// scriptedReader hands out data and then fails with err
type scriptedReader struct {
	data []byte
	err  error
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSendBestEffort(t *testing.T) {
	var out bytes.Buffer
	l := New(&out, ReaderSource{R: bytes.NewReader(nil)})
	l.Send([]byte{0xFF, 0x01})
	require.Equal(t, []byte{0xFF, 0x01}, out.Bytes())
	require.Zero(t, l.SendErrors())

	var logged []string
	l = New(failWriter{errors.New("unplugged")}, ReaderSource{R: bytes.NewReader(nil)})
	l.SetDebugWriter(func(s string) { logged = append(logged, s) })
	l.Send([]byte{0xFF, 0x01})
	l.Send([]byte{0xFF, 0x01})
	require.Equal(t, 2, l.SendErrors())
	require.Len(t, logged, 2)
	require.Contains(t, logged[0], "unplugged")
}

func TestReceiveExactReaderSource(t *testing.T) {
	l := New(io.Discard, ReaderSource{R: &scriptedReader{data: []byte{1, 2, 3, 4, 5}, err: io.EOF}})
	buf := make([]byte, 3)
	require.NoError(t, l.ReceiveExact(context.Background(), buf))
	require.Equal(t, []byte{1, 2, 3}, buf)

	err := l.ReceiveExact(context.Background(), buf)
	require.True(t, IsKind(err, KindClosed), "%v", err)
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderSourceErrorKinds(t *testing.T) {
	ctx := context.Background()

	err := ReaderSource{R: &scriptedReader{err: timeoutErr{}}}.ReadFull(ctx, make([]byte, 1))
	require.True(t, IsKind(err, KindTimeout))
	require.True(t, os.IsTimeout(err))

	boom := errors.New("boom")
	err = ReaderSource{R: &scriptedReader{err: boom}}.ReadFull(ctx, make([]byte, 1))
	require.True(t, IsKind(err, KindIO))
	require.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = ReaderSource{R: &scriptedReader{data: []byte{1}}}.ReadFull(cancelled, make([]byte, 1))
	require.True(t, IsKind(err, KindCanceled))
}

func TestReaderSourcePolling(t *testing.T) {
	r := &idleReader{data: []byte{7, 8}}
	src := ReaderSource{R: r, Idle: 100 * time.Microsecond}
	buf := make([]byte, 2)
	require.NoError(t, src.ReadFull(context.Background(), buf))
	require.Equal(t, []byte{7, 8}, buf)
	require.Equal(t, 4, r.polls)

	// an idle reader still honours cancellation between polls
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := src.ReadFull(ctx, buf)
	require.True(t, IsKind(err, KindTimeout), "%v", err)
}

func TestReceiveExactWrapsForeignErrors(t *testing.T) {
	l := New(io.Discard, sourceFunc(func(context.Context, []byte) error {
		return errors.New("odd source")
	}))
	err := l.ReceiveExact(context.Background(), make([]byte, 1))
	require.True(t, IsKind(err, KindIO))
}

type sourceFunc func(context.Context, []byte) error

func (f sourceFunc) ReadFull(ctx context.Context, buf []byte) error { return f(ctx, buf) }

func TestReceiveExactTimeout(t *testing.T) {
	p := NewPump(make([]byte, 16))
	l := New(io.Discard, p)
	l.Timeout = 20 * time.Millisecond

	start := time.Now()
	err := l.ReceiveExact(context.Background(), make([]byte, 2))
	require.True(t, IsKind(err, KindTimeout), "%v", err)
	require.True(t, os.IsTimeout(err))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// a late byte is still delivered afterwards
	p.Produce(7)
	buf := make([]byte, 1)
	require.NoError(t, l.ReceiveExact(context.Background(), buf))
	require.Equal(t, byte(7), buf[0])
}

func TestReceiveExactCanceled(t *testing.T) {
	p := NewPump(make([]byte, 16))
	l := New(io.Discard, p)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := l.ReceiveExact(ctx, make([]byte, 1))
	require.True(t, IsKind(err, KindCanceled), "%v", err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFlush(t *testing.T) {
	p := NewPump(make([]byte, 16))
	l := New(io.Discard, p)
	for _, b := range []byte("stale") {
		p.Produce(b)
	}
	p.Fault(KindParity)

	require.Equal(t, 5, l.Flush())
	require.Zero(t, p.Buffered())

	p.Produce('x')
	buf := make([]byte, 1)
	require.NoError(t, l.ReceiveExact(context.Background(), buf))
	require.Equal(t, byte('x'), buf[0])

	require.Zero(t, New(io.Discard, ReaderSource{R: bytes.NewReader(nil)}).Flush())
}

func TestOpenOverPipe(t *testing.T) {
	host, device := net.Pipe()
	defer host.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l, p := Open(ctx, device, 64)
	l.Timeout = time.Second

	go func() {
		req := make([]byte, 2)
		if _, err := io.ReadFull(host, req); err != nil {
			return
		}
		host.Write([]byte{req[1], 0x00})
	}()

	l.Send([]byte{0xFF, 0x05})
	reply := make([]byte, 2)
	require.NoError(t, l.ReceiveExact(ctx, reply))
	require.Equal(t, []byte{0x05, 0x00}, reply)

	host.Close()
	err := l.ReceiveExact(ctx, reply[:1])
	require.True(t, IsKind(err, KindClosed), "%v", err)
	<-p.Done()
	require.Error(t, p.Err())
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "link overrun error", (&Error{Kind: KindOverrun}).Error())
	require.Equal(t, "link i/o: boom", (&Error{Kind: KindIO, Err: errors.New("boom")}).Error())
	require.Equal(t, "kind(42)", Kind(42).String())
}
