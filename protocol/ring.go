package protocol

import "sync/atomic"

// RingBuffer is a fixed-capacity circular byte queue for serial I/O.
//
// The storage length must be a power of two so cursors wrap with a mask
// instead of a modulo. One slot is always left empty to tell a full buffer
// from an empty one, so at most len(storage)-1 bytes are held at a time.
//
// A single producer (an interrupt handler or a reader goroutine) may call
// Put/Write/IsFull/SlotsLeft while a single consumer calls Get/Read/HasData
// concurrently. The producer only advances the write cursor and the consumer
// only advances the read cursor; both are published with atomic stores.
type RingBuffer struct {
	buf   []byte
	mask  uint32
	read  uint32 // next slot to get from (consumer owned)
	write uint32 // next free slot (producer owned)
}

// NewRingBuffer creates a RingBuffer over storage.
// It panics if len(storage) is not a power of two of at least 2.
func NewRingBuffer(storage []byte) *RingBuffer {
	n := len(storage)
	if n < 2 || n&(n-1) != 0 {
		panic("protocol: ring buffer size must be a power of two")
	}
	return &RingBuffer{
		buf:  storage,
		mask: uint32(n - 1),
	}
}

func (r *RingBuffer) inc(v uint32) uint32 {
	return (v + 1) & r.mask
}

// HasData returns true if at least one byte can be read
func (r *RingBuffer) HasData() bool {
	return atomic.LoadUint32(&r.read) != atomic.LoadUint32(&r.write)
}

// IsEmpty returns true if the buffer holds no data
func (r *RingBuffer) IsEmpty() bool {
	return atomic.LoadUint32(&r.read) == atomic.LoadUint32(&r.write)
}

// IsFull returns true if one more Put would overwrite unread data
func (r *RingBuffer) IsFull() bool {
	return atomic.LoadUint32(&r.read) == r.inc(atomic.LoadUint32(&r.write))
}

// SlotsLeft returns the number of bytes that can still be put
func (r *RingBuffer) SlotsLeft() int {
	return int(r.mask - r.used())
}

// Len returns the number of bytes available for reading
func (r *RingBuffer) Len() int {
	return int(r.used())
}

// Cap returns the usable capacity, one less than the storage length
func (r *RingBuffer) Cap() int {
	return int(r.mask)
}

func (r *RingBuffer) used() uint32 {
	return (atomic.LoadUint32(&r.write) - atomic.LoadUint32(&r.read)) & r.mask
}

// Put stores one byte.
//
// The caller must check IsFull first: Put does not, and writing into a full
// buffer silently discards everything that was queued.
func (r *RingBuffer) Put(b byte) {
	w := atomic.LoadUint32(&r.write)
	r.buf[w] = b
	atomic.StoreUint32(&r.write, r.inc(w))
}

// Get removes and returns one byte.
//
// The caller must check HasData first; on an empty buffer Get returns stale
// storage and corrupts the cursors.
func (r *RingBuffer) Get() byte {
	rd := atomic.LoadUint32(&r.read)
	b := r.buf[rd]
	atomic.StoreUint32(&r.read, r.inc(rd))
	return b
}

// Write appends data until the buffer is full and returns the number of
// bytes stored. Bytes that do not fit are dropped.
func (r *RingBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		if r.IsFull() {
			break
		}
		r.Put(b)
		written++
	}
	return written
}

// Read reads up to len(data) bytes and returns the number read
func (r *RingBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if !r.HasData() {
			break
		}
		data[i] = r.Get()
		read++
	}
	return read
}

// Reset empties the buffer. It touches both cursors, so neither side may be
// running while it is called.
func (r *RingBuffer) Reset() {
	atomic.StoreUint32(&r.read, 0)
	atomic.StoreUint32(&r.write, 0)
}
