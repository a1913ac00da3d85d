package buffer

import (
	"math"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

// RingBuffer gives circular addressing over a FrameBuffer it owns.
// Semantics:
//   - In writes at the cursor and then moves the cursor one slot back (wrapping),
//     so writes march backwards through physical storage.
//   - Read(0) is the most recent frame, Read(size-1) the oldest retained one.
//   - Nothing is ever reallocated by writing; the logical order is a rotation.
type RingBuffer struct {
	buf    *FrameBuffer
	index  int
	logger pixlog.Logger

	// Metrics
	totalWrites   uint64
	rejectedWrite uint64
	wraps         uint64
}

// NewRing returns an unallocated ring.
func NewRing(opts ...Option) *RingBuffer {
	buf := New(opts...)
	return &RingBuffer{
		buf:    buf,
		logger: buf.logger.Named("ring"),
	}
}

// NewRingAllocated returns a ring holding frames zero-filled slots.
func NewRingAllocated(width, height, channels, frames int, opts ...Option) (*RingBuffer, error) {
	rb := NewRing(opts...)
	if err := rb.Allocate(width, height, channels, frames); err != nil {
		return nil, err
	}
	return rb, nil
}

// Allocate reshapes the underlying buffer and resets the cursor.
func (rb *RingBuffer) Allocate(width, height, channels, frames int) error {
	rb.index = 0
	return rb.buf.Allocate(width, height, channels, frames)
}

// In writes frame at the cursor and steps the cursor back one slot. A rejected
// write leaves the cursor where it was.
func (rb *RingBuffer) In(frame *pixels.Frame) error {
	if err := rb.buf.Write(rb.index, frame); err != nil {
		rb.rejectedWrite++
		return err
	}
	rb.totalWrites++

	rb.index--
	if rb.index < 0 {
		rb.index = rb.buf.Size() - 1
		rb.wraps++
		rb.logger.Debug("cursor wrapped", pixlog.Uint64("wraps", rb.wraps))
	}
	return nil
}

// physical maps a logical index onto storage. The +1 compensates for In having
// already moved the cursor past the latest write.
func (rb *RingBuffer) physical(logical int) int {
	n := rb.buf.Size()
	logical = max(0, min(n-1, logical))
	return (logical + rb.index + 1) % n
}

// Read returns the frame written logical writes ago (0 = most recent).
func (rb *RingBuffer) Read(logical int) (*pixels.Frame, error) {
	if rb.buf.Size() == 0 {
		return rb.buf.Read(0)
	}
	return rb.buf.Read(rb.physical(logical))
}

// ReadLinear applies the same rotation to a fractional position and blends
// through the underlying buffer's ReadLinear, which wraps from the last physical
// slot to the first.
func (rb *RingBuffer) ReadLinear(logical float64) (*pixels.Frame, error) {
	n := float64(rb.buf.Size())
	if n == 0 {
		return rb.buf.ReadLinear(0)
	}

	logical = max(0, min(n-1, logical))
	k := math.Mod(logical+float64(rb.index)+1, n)
	if k < 0 {
		k += n
	}
	return rb.buf.ReadLinear(k)
}

// Resize changes the slot count and pulls the cursor back inside the new range.
func (rb *RingBuffer) Resize(frames int) error {
	if err := rb.buf.Resize(frames); err != nil {
		return err
	}
	if n := rb.buf.Size(); rb.index >= n {
		rb.index = max(0, n-1)
	}
	return nil
}

// Clear zeroes every slot and keeps the cursor.
func (rb *RingBuffer) Clear() { rb.buf.ClearPixels() }

// Buffer exposes the owned FrameBuffer in physical order.
func (rb *RingBuffer) Buffer() *FrameBuffer { return rb.buf }

// Cursor is the physical slot the next In will write to.
func (rb *RingBuffer) Cursor() int { return rb.index }

func (rb *RingBuffer) Size() int         { return rb.buf.Size() }
func (rb *RingBuffer) IsAllocated() bool { return rb.buf.IsAllocated() }
func (rb *RingBuffer) Width() int        { return rb.buf.Width() }
func (rb *RingBuffer) Height() int       { return rb.buf.Height() }
func (rb *RingBuffer) Channels() int     { return rb.buf.Channels() }

// Metrics returns ring statistics
func (rb *RingBuffer) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"capacity":        rb.buf.Size(),
		"cursor":          rb.index,
		"total_writes":    rb.totalWrites,
		"rejected_writes": rb.rejectedWrite,
		"wraps":           rb.wraps,
	}
}
