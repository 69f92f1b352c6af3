package link

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPumpProduceFIFO(t *testing.T) {
	p := NewPump(make([]byte, 8))
	for i := byte(0); i < 7; i++ {
		require.True(t, p.Produce(i))
	}
	require.Equal(t, 7, p.Buffered())

	buf := make([]byte, 7)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6}, buf)
}

func TestPumpOverrun(t *testing.T) {
	p := NewPump(make([]byte, 4))
	require.True(t, p.Produce('a'))
	require.True(t, p.Produce('b'))
	require.True(t, p.Produce('c'))
	require.False(t, p.Produce('d'))
	require.Equal(t, 1, p.Dropped())

	buf := make([]byte, 1)
	err := p.ReadFull(context.Background(), buf)
	require.True(t, IsKind(err, KindOverrun), "%v", err)

	// reported once, then the surviving bytes come through in order
	buf = make([]byte, 3)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, []byte("abc"), buf)
}

func TestPumpFaultFirstWins(t *testing.T) {
	p := NewPump(make([]byte, 8))
	p.Fault(KindFraming)
	p.Fault(KindParity)
	p.Produce(1)

	err := p.ReadFull(context.Background(), make([]byte, 1))
	require.True(t, IsKind(err, KindFraming))

	buf := make([]byte, 1)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, byte(1), buf[0])
}

func TestPumpRunDrainsBeforeClosing(t *testing.T) {
	p := NewPump(make([]byte, 32))
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), bytes.NewReader([]byte("hello"))) }()

	buf := make([]byte, 5)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, []byte("hello"), buf)
	require.NoError(t, <-done)

	err := p.ReadFull(context.Background(), buf[:1])
	require.True(t, IsKind(err, KindClosed))
}

func TestPumpRunIOError(t *testing.T) {
	p := NewPump(make([]byte, 32))
	boom := errors.New("device gone")
	err := p.Run(context.Background(), &scriptedReader{data: []byte{1, 2}, err: boom})
	require.ErrorIs(t, err, boom)

	buf := make([]byte, 2)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	err = p.ReadFull(context.Background(), buf)
	require.True(t, IsKind(err, KindIO))
	require.ErrorIs(t, err, boom)
}

// timeoutThenData returns a timeout error first, then its data, then EOF
type timeoutThenData struct {
	timeouts int
	data     []byte
}

func (r *timeoutThenData) Read(p []byte) (int, error) {
	if r.timeouts > 0 {
		r.timeouts--
		return 0, timeoutErr{}
	}
	if len(r.data) == 0 {
		return 0, errors.New("EOF-ish")
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestPumpRunIgnoresTimeouts(t *testing.T) {
	p := NewPump(make([]byte, 32))
	go p.Run(context.Background(), &timeoutThenData{timeouts: 3, data: []byte{9, 8}})

	buf := make([]byte, 2)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, []byte{9, 8}, buf)
}

func TestPumpRunOverrun(t *testing.T) {
	p := NewPump(make([]byte, 4))
	require.NoError(t, p.Run(context.Background(), bytes.NewReader([]byte("abcdef"))))
	require.Equal(t, 3, p.Dropped())

	err := p.ReadFull(context.Background(), make([]byte, 1))
	require.True(t, IsKind(err, KindOverrun))
}

// idleReader returns (0, nil) a few times like a polled UART
type idleReader struct {
	mu    sync.Mutex
	polls int
	data  []byte
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	if r.polls < 4 || len(r.data) == 0 {
		return 0, nil
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestPumpRunPolling(t *testing.T) {
	p := NewPump(make([]byte, 32))
	p.Idle = 100 * time.Microsecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, &idleReader{data: []byte{0xAA}})

	buf := make([]byte, 1)
	require.NoError(t, p.ReadFull(ctx, buf))
	require.Equal(t, byte(0xAA), buf[0])

	cancel()
	<-p.Done()
	require.True(t, IsKind(p.Err(), KindClosed))
}

func TestPumpReset(t *testing.T) {
	p := NewPump(make([]byte, 4))
	p.Produce(1)
	p.Produce(2)
	p.Produce(3)
	p.Produce(4)
	p.Reset()
	require.Zero(t, p.Buffered())
	require.Zero(t, p.Dropped())

	p.Produce(5)
	buf := make([]byte, 1)
	require.NoError(t, p.ReadFull(context.Background(), buf))
	require.Equal(t, byte(5), buf[0])
}

func TestPumpConcurrent(t *testing.T) {
	const total = 20000
	p := NewPump(make([]byte, 64))
	src := make([]byte, total)
	rand.New(rand.NewSource(1)).Read(src)

	go func() {
		for i := 0; i < total; {
			if p.Produce(src[i]) {
				i++
				continue
			}
			// full: back off instead of counting an overrun as data loss
			time.Sleep(10 * time.Microsecond)
		}
	}()

	// single byte reads: a fault is reported before anything is consumed
	got := make([]byte, 0, total)
	buf := make([]byte, 1)
	for len(got) < total {
		err := p.ReadFull(context.Background(), buf)
		if IsKind(err, KindOverrun) {
			continue
		}
		require.NoError(t, err)
		got = append(got, buf[0])
	}
	require.Equal(t, src, got)
}

func TestSizeFor(t *testing.T) {
	require.Equal(t, 2, SizeFor(0))
	require.Equal(t, 2, SizeFor(1))
	require.Equal(t, 4, SizeFor(2))
	require.Equal(t, 4, SizeFor(3))
	require.Equal(t, 2048, SizeFor(1028))
}
