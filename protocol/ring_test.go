package protocol

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer(t *testing.T) {
	ring := NewRingBuffer(make([]byte, 16))

	if !ring.IsEmpty() || ring.HasData() {
		t.Error("New ring should be empty")
	}

	if ring.Cap() != 15 {
		t.Errorf("Expected usable capacity 15, got %d", ring.Cap())
	}

	if ring.SlotsLeft() != 15 {
		t.Errorf("Empty ring should have 15 slots left, got %d", ring.SlotsLeft())
	}

	// Write some data
	written := ring.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	if ring.Len() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", ring.Len())
	}

	// Read some data
	readBuf := make([]byte, 3)
	read := ring.Read(readBuf)

	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}

	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	if ring.SlotsLeft() != 13 {
		t.Errorf("After reading 3, expected 13 slots left, got %d", ring.SlotsLeft())
	}

	// Overflow drops the tail
	ring.Reset()
	bigData := make([]byte, 20)
	for i := range bigData {
		bigData[i] = byte(i)
	}
	written = ring.Write(bigData)
	if written != 15 { // storage is 16, one slot reserved
		t.Errorf("Expected to write 15 bytes to size-16 ring, wrote %d", written)
	}
	if !ring.IsFull() {
		t.Error("Ring should be full")
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	ring := NewRingBuffer(make([]byte, 8))

	ring.Write([]byte{1, 2, 3, 4, 5, 6})

	readBuf := make([]byte, 4)
	ring.Read(readBuf)

	// Write more (will wrap around)
	written := ring.Write([]byte{7, 8, 9, 10})
	if written != 4 {
		t.Errorf("Expected to write 4 bytes, wrote %d", written)
	}

	if ring.SlotsLeft() != 1 {
		t.Errorf("Expected 1 slot left after wrap, got %d", ring.SlotsLeft())
	}

	allData := make([]byte, 8)
	read := ring.Read(allData)
	require.Equal(t, 6, read)
	require.Equal(t, []byte{5, 6, 7, 8, 9, 10}, allData[:read])
	require.True(t, ring.IsEmpty())
}

func TestRingBufferRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 3, 12, 100} {
		require.Panicsf(t, func() { NewRingBuffer(make([]byte, n)) }, "size %d", n)
	}
	require.NotPanics(t, func() { NewRingBuffer(make([]byte, 2)) })
}

func TestRingBufferFullMeansCapacityMinusOne(t *testing.T) {
	ring := NewRingBuffer(make([]byte, 32))
	for i := 0; i < 31; i++ {
		require.False(t, ring.IsFull(), "full after %d bytes", i)
		ring.Put(byte(i))
		require.Equal(t, i+1, ring.Len())
		require.Equal(t, 31-(i+1), ring.SlotsLeft())
	}
	require.True(t, ring.IsFull())
	require.Equal(t, 0, ring.SlotsLeft())

	// Full status holds at every cursor offset
	for i := 0; i < 100; i++ {
		ring.Get()
		require.False(t, ring.IsFull())
		ring.Put(byte(i))
		require.True(t, ring.IsFull())
		require.Equal(t, 31, ring.Len())
	}
}

func TestRingBufferFIFOOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ring := NewRingBuffer(make([]byte, 64))

	var next, expect byte
	for step := 0; step < 10000; step++ {
		if rng.Intn(2) == 0 {
			n := rng.Intn(8)
			for i := 0; i < n && !ring.IsFull(); i++ {
				ring.Put(next)
				next++
			}
			continue
		}
		n := rng.Intn(8)
		for i := 0; i < n && ring.HasData(); i++ {
			require.Equal(t, expect, ring.Get(), "step %d", step)
			expect++
		}
	}
	for ring.HasData() {
		require.Equal(t, expect, ring.Get())
		expect++
	}
	require.Equal(t, next, expect)
}

func TestRingBufferConcurrentProducer(t *testing.T) {
	ring := NewRingBuffer(make([]byte, 16))
	const total = 50000

	go func() {
		for i := 0; i < total; {
			if ring.IsFull() {
				continue
			}
			ring.Put(byte(i))
			i++
		}
	}()

	for i := 0; i < total; {
		if !ring.HasData() {
			continue
		}
		if got := ring.Get(); got != byte(i) {
			t.Fatalf("byte %d: expected %d, got %d", i, byte(i), got)
		}
		i++
	}
}
