package encoding

import (
	"errors"
	"sync"
)

const (
	// BufferCapacity is the fixed size of one encode buffer. A buffer never
	// grows; a record that does not fit is a fatal encoding error.
	BufferCapacity = 1_000_000

	// recycleWatermark is the low-water mark of free space below which the
	// write cursor wraps back to position 0 after an encode.
	recycleWatermark = 1000
)

// ErrBufferFull is returned when a single encoded record would exceed the
// buffer capacity.
var ErrBufferFull = errors.New("encode buffer capacity exceeded")

// Buffer is a reusable output buffer owned by exactly one worker at a time.
// Encoded records are byte ranges into the buffer; a range stays valid only
// until the cursor next wraps, so each record must be consumed (copied or
// transmitted) before the next encode call on the same buffer.
type Buffer struct {
	data []byte
	pos  int
}

func newBuffer() *Buffer {
	return &Buffer{data: make([]byte, BufferCapacity)}
}

// Position returns the current write cursor.
func (b *Buffer) Position() int {
	return b.pos
}

// Remaining returns the free capacity after the cursor.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Range returns the byte range [start, end) of the buffer.
func (b *Buffer) Range(start, end int) []byte {
	return b.data[start:end]
}

func (b *Buffer) writeByte(v byte) error {
	if b.pos+1 > len(b.data) {
		return ErrBufferFull
	}
	b.data[b.pos] = v
	b.pos++
	return nil
}

func (b *Buffer) write(p []byte) error {
	if b.pos+len(p) > len(b.data) {
		return ErrBufferFull
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return nil
}

// recycle wraps the cursor back to the start once free space drops below
// the watermark. All previously returned ranges must already be consumed.
func (b *Buffer) recycle() {
	if b.Remaining() < recycleWatermark {
		b.pos = 0
	}
}

// Arena hands out exclusive encode buffers. A checked-out buffer is the
// caller's worker handle: it is private until released, so no two encode
// operations can interleave writes into the same region. Buffers are
// created lazily and reused across acquisitions.
type Arena struct {
	mu   sync.Mutex
	free []*Buffer
}

// NewArena creates an empty arena; buffers are allocated on first Acquire.
func NewArena() *Arena {
	return &Arena{}
}

// Acquire returns a buffer for exclusive use by the calling worker.
func (a *Arena) Acquire() *Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		buf := a.free[n-1]
		a.free = a.free[:n-1]
		return buf
	}
	return newBuffer()
}

// Release returns a buffer to the arena. The caller must not touch the
// buffer or any range obtained from it afterwards.
func (a *Arena) Release(buf *Buffer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, buf)
}
