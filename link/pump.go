package link

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tilelink/protocol"
)

// DefaultIdle is how long Run sleeps when the reader has nothing to offer
const DefaultIdle = time.Millisecond

// Pump buffers inbound bytes between one producer and one consumer.
//
// The producer is either an interrupt handler calling Produce and Fault, or
// the Run goroutine reading from a port. The consumer is ReadFull. Faults
// latched by the producer are reported by the consumer's next ReadFull and
// then cleared; the first fault wins until it is reported.
type Pump struct {
	ring    *protocol.RingBuffer
	notify  chan struct{}
	done    chan struct{}
	fault   uint32 // Kind, 0 when clear
	dropped uint32

	// Idle is the poll interval used by Run for readers that return
	// (0, nil) when no data is pending, like TinyGo UARTs.
	Idle time.Duration

	mu     sync.Mutex
	runErr *Error
}

// NewPump creates a Pump over storage, whose length must be a power of two
func NewPump(storage []byte) *Pump {
	return &Pump{
		ring:   protocol.NewRingBuffer(storage),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		Idle:   DefaultIdle,
	}
}

// SizeFor returns the smallest power of two ring size that holds n bytes
// with the reserved slot to spare.
func SizeFor(n int) int {
	size := 2
	for size-1 < n {
		size <<= 1
	}
	return size
}

// Produce queues one byte. It never blocks and is safe to call from an
// interrupt handler. When the ring is full the byte is dropped, an overrun
// is latched and false is returned.
func (p *Pump) Produce(b byte) bool {
	if p.ring.IsFull() {
		atomic.AddUint32(&p.dropped, 1)
		p.latch(KindOverrun)
		p.wake()
		return false
	}
	p.ring.Put(b)
	p.wake()
	return true
}

// Fault latches a peripheral error such as KindFraming or KindParity
func (p *Pump) Fault(k Kind) {
	p.latch(k)
	p.wake()
}

func (p *Pump) latch(k Kind) {
	atomic.CompareAndSwapUint32(&p.fault, 0, uint32(k))
}

func (p *Pump) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run is the producer loop: it copies everything r delivers into the ring
// until r fails or ctx is done. Timeout errors from r are treated as "no data
// yet". Run must be called at most once per Pump. Bytes already queued when it
// returns remain readable; after that the consumer gets the error that ended
// the loop.
func (p *Pump) Run(ctx context.Context, r io.Reader) error {
	defer close(p.done)

	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			p.finish(newError(KindClosed, err))
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if stored := p.ring.Write(buf[:n]); stored < n {
				atomic.AddUint32(&p.dropped, uint32(n-stored))
				p.latch(KindOverrun)
			}
			p.wake()
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				p.finish(newError(KindClosed, err))
				return nil
			}
			p.finish(newError(KindIO, err))
			return err
		}
		if n == 0 {
			time.Sleep(p.Idle)
		}
	}
}

func (p *Pump) finish(err *Error) {
	p.mu.Lock()
	p.runErr = err
	p.mu.Unlock()
}

// Err returns the error that ended Run, or nil while it is running
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runErr == nil {
		return nil
	}
	return p.runErr
}

// Done is closed when Run returns
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// ReadFull blocks until buf is filled, a fault is reported, ctx is done or
// the producer loop has ended with nothing left to read.
func (p *Pump) ReadFull(ctx context.Context, buf []byte) error {
	got := 0
	for {
		if k := Kind(atomic.SwapUint32(&p.fault, 0)); k != 0 {
			return newError(k, nil)
		}
		got += p.ring.Read(buf[got:])
		if got == len(buf) {
			return nil
		}

		select {
		case <-p.notify:
		case <-p.done:
			if p.ring.HasData() || atomic.LoadUint32(&p.fault) != 0 {
				continue
			}
			p.mu.Lock()
			err := p.runErr
			p.mu.Unlock()
			if err == nil {
				err = newError(KindClosed, nil)
			}
			return err
		case <-ctx.Done():
			return ctxError(ctx)
		}
	}
}

// Discard drops everything queued and clears a latched fault. Like ReadFull
// it only touches the consumer side, so the producer may keep running.
func (p *Pump) Discard() int {
	var scratch [64]byte
	n := 0
	for {
		m := p.ring.Read(scratch[:])
		if m == 0 {
			break
		}
		n += m
	}
	atomic.StoreUint32(&p.fault, 0)
	select {
	case <-p.notify:
	default:
	}
	return n
}

// Reset empties the ring and clears the fault and drop counters. It touches
// both cursors: on TinyGo it masks interrupts for the duration, elsewhere the
// producer goroutine must not be running.
func (p *Pump) Reset() {
	state := disableInterrupts()
	p.ring.Reset()
	atomic.StoreUint32(&p.fault, 0)
	atomic.StoreUint32(&p.dropped, 0)
	restoreInterrupts(state)
}

// Buffered returns the number of bytes waiting to be read
func (p *Pump) Buffered() int {
	return p.ring.Len()
}

// Dropped returns the number of bytes lost to overruns
func (p *Pump) Dropped() int {
	return int(atomic.LoadUint32(&p.dropped))
}
