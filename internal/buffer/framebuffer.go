// Package buffer holds ordered collections of equally shaped pixel frames:
// the double-ended FrameBuffer and the circular RingBuffer built on top of it.
//
// Frames returned by Read and ReadLinear are borrowed. They stay valid until the
// next mutating call on the same buffer (ReadLinear's result until the next
// ReadLinear). The buffer owner must serialize resizing against readers.
package buffer

import (
	"fmt"
	"slices"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

// linearEpsilon keeps ReadLinear's position strictly below the frame count, so
// positions past the last frame blend toward frame 0.
const linearEpsilon = 1e-4

// FrameBuffer is an ordered, double-ended sequence of frames sharing one shape.
type FrameBuffer struct {
	frames    []*pixels.Frame
	width     int
	height    int
	channels  int
	frameSize int
	allocated bool

	// lerp holds the most recent ReadLinear result and is overwritten by the next one.
	lerp *pixels.Frame
	// empty is handed out when a read cannot be served.
	empty *pixels.Frame

	pool   *PayloadPool
	logger pixlog.Logger
}

// Option configures a FrameBuffer.
type Option func(*FrameBuffer)

// WithLogger injects a logger. The buffer logs under the "frame-buffer" name.
func WithLogger(l pixlog.Logger) Option {
	return func(fb *FrameBuffer) {
		if l != nil {
			fb.logger = l.Named("frame-buffer")
		}
	}
}

// WithPool replaces the shared payload pool.
func WithPool(p *PayloadPool) Option {
	return func(fb *FrameBuffer) {
		if p != nil {
			fb.pool = p
		}
	}
}

// New returns an empty, unallocated buffer.
func New(opts ...Option) *FrameBuffer {
	fb := &FrameBuffer{
		empty:  &pixels.Frame{},
		pool:   defaultPool,
		logger: pixlog.L().Named("frame-buffer"),
	}
	for _, opt := range opts {
		opt(fb)
	}
	return fb
}

// NewAllocated returns a buffer holding frames zero-filled frames of the given shape.
func NewAllocated(width, height, channels, frames int, opts ...Option) (*FrameBuffer, error) {
	fb := New(opts...)
	if err := fb.Allocate(width, height, channels, frames); err != nil {
		return nil, err
	}
	return fb, nil
}

// NewFromFrame allocates frames zero-filled frames shaped like example.
func NewFromFrame(example *pixels.Frame, frames int, opts ...Option) (*FrameBuffer, error) {
	fb := New(opts...)
	if err := fb.AllocateLike(example, frames); err != nil {
		return nil, err
	}
	return fb, nil
}

func (fb *FrameBuffer) fail(op string, err error, fields ...pixlog.Field) error {
	fb.logger.Warn(op+" failed", append(fields, pixlog.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}

// Allocate fixes the buffer shape and replaces its contents with frames
// zero-filled frames. Channels outside [1,4] are invalid.
func (fb *FrameBuffer) Allocate(width, height, channels, frames int) error {
	width = max(0, width)
	height = max(0, height)
	if channels < 1 || channels > pixels.MaxChannels {
		channels = 0
	}

	if width*height*channels <= 0 || frames <= 0 {
		return fb.fail("allocate", ErrAllocation,
			pixlog.Int("width", width), pixlog.Int("height", height),
			pixlog.Int("channels", channels), pixlog.Int("frames", frames))
	}

	fb.release(fb.frames)
	fb.frames = fb.frames[:0]
	fb.setShape(width, height, channels)
	fb.grow(frames)
	return nil
}

// AllocateLike derives the shape from an example frame.
func (fb *FrameBuffer) AllocateLike(example *pixels.Frame, frames int) error {
	if example == nil {
		return fb.fail("allocate", ErrAllocation)
	}
	return fb.Allocate(example.Width, example.Height, example.Channels, frames)
}

func (fb *FrameBuffer) setShape(width, height, channels int) {
	fb.width = width
	fb.height = height
	fb.channels = channels
	fb.frameSize = width * height * channels
	fb.lerp = pixels.New(width, height, channels)
	fb.allocated = true
}

// Resize grows the sequence with zero-filled frames or drops trailing frames.
func (fb *FrameBuffer) Resize(frames int) error {
	if !fb.allocated {
		return fb.fail("resize", ErrNotAllocated)
	}
	frames = max(0, frames)

	if frames < len(fb.frames) {
		fb.release(fb.frames[frames:])
		clear(fb.frames[frames:])
		fb.frames = fb.frames[:frames]
		return nil
	}
	fb.grow(frames - len(fb.frames))
	return nil
}

func (fb *FrameBuffer) grow(n int) {
	fb.frames = slices.Grow(fb.frames, n)
	for i := 0; i < n; i++ {
		fb.frames = append(fb.frames, fb.newFrame())
	}
}

func (fb *FrameBuffer) newFrame() *pixels.Frame {
	return &pixels.Frame{
		Width:    fb.width,
		Height:   fb.height,
		Channels: fb.channels,
		Pix:      fb.pool.Get(fb.frameSize),
	}
}

func (fb *FrameBuffer) release(frames []*pixels.Frame) {
	for _, f := range frames {
		if f != nil {
			fb.pool.Put(f.Pix)
			f.Pix = nil
		}
	}
}

// ClearBuffer drops every frame and returns the buffer to the unallocated state.
func (fb *FrameBuffer) ClearBuffer() {
	fb.release(fb.frames)
	fb.frames = nil
	fb.width = 0
	fb.height = 0
	fb.channels = 0
	fb.frameSize = 0
	fb.allocated = false
	fb.lerp = nil
}

// ClearPixels zeroes every payload without changing shape or frame count.
func (fb *FrameBuffer) ClearPixels() {
	for _, f := range fb.frames {
		f.Zero()
	}
}

func (fb *FrameBuffer) clampIndex(index int) int {
	return max(0, min(len(fb.frames)-1, index))
}

// matches checks the header and the payload length against the buffer shape.
func (fb *FrameBuffer) matches(f *pixels.Frame) bool {
	return f.HasShape(fb.width, fb.height, fb.channels) && len(f.Pix) == fb.frameSize
}

// Write copies frame into the slot at the clamped index.
func (fb *FrameBuffer) Write(index int, frame *pixels.Frame) error {
	if len(fb.frames) == 0 {
		return fb.fail("write", ErrEmptyBuffer)
	}
	if !fb.matches(frame) {
		return fb.fail("write", ErrDimensionMismatch,
			pixlog.String("frame", frame.String()), pixlog.String("buffer", fb.shape()))
	}

	index = fb.clampIndex(index)
	copy(fb.frames[index].Pix, frame.Pix)
	return nil
}

// Read returns the frame at the clamped index. On an empty buffer it returns the
// empty frame together with ErrEmptyBuffer.
func (fb *FrameBuffer) Read(index int) (*pixels.Frame, error) {
	if len(fb.frames) == 0 {
		return fb.empty, fb.fail("read", ErrEmptyBuffer)
	}
	return fb.frames[fb.clampIndex(index)], nil
}

// At is Read without the error, for callers that only render.
func (fb *FrameBuffer) At(index int) *pixels.Frame {
	f, _ := fb.Read(index)
	return f
}

// ReadLinear blends the two frames around a fractional position. The position is
// clamped to [0, size); between the last frame and size the blend wraps to frame 0.
// The result is the buffer's scratch frame and is overwritten by the next call.
func (fb *FrameBuffer) ReadLinear(position float64) (*pixels.Frame, error) {
	n := len(fb.frames)
	if n == 0 {
		return fb.empty, fb.fail("read linear", ErrEmptyBuffer)
	}

	position = max(0, min(float64(n)-linearEpsilon, position))
	i := int(position)
	frac := position - float64(i)
	next := i + 1
	if i == n-1 {
		next = 0
	}

	if !fb.matches(fb.lerp) {
		fb.lerp = pixels.New(fb.width, fb.height, fb.channels)
	}
	out := fb.lerp.Pix
	a := fb.frames[i].Pix
	b := fb.frames[next].Pix

	if frac == 0 {
		copy(out, a)
		return fb.lerp, nil
	}

	wa := 1 - frac
	for k := range out {
		out[k] = byte(float64(a[k])*wa + float64(b[k])*frac + 0.5)
	}
	return fb.lerp, nil
}

// PushFront prepends a copy of frame. The first push into an unallocated buffer
// fixes its shape.
func (fb *FrameBuffer) PushFront(frame *pixels.Frame) error {
	return fb.push("push front", frame, true)
}

// PushBack appends a copy of frame. The first push into an unallocated buffer
// fixes its shape.
func (fb *FrameBuffer) PushBack(frame *pixels.Frame) error {
	return fb.push("push back", frame, false)
}

func (fb *FrameBuffer) push(op string, frame *pixels.Frame, front bool) error {
	if frame.IsEmpty() || frame.Width <= 0 || frame.Height <= 0 ||
		frame.Channels < 1 || frame.Channels > pixels.MaxChannels || len(frame.Pix) != frame.Size() {
		return fb.fail(op, ErrAllocation, pixlog.String("frame", frame.String()))
	}
	if !fb.allocated {
		fb.setShape(frame.Width, frame.Height, frame.Channels)
	} else if !fb.matches(frame) {
		return fb.fail(op, ErrDimensionMismatch,
			pixlog.String("frame", frame.String()), pixlog.String("buffer", fb.shape()))
	}

	cp := fb.newFrame()
	copy(cp.Pix, frame.Pix)
	if front {
		fb.frames = slices.Insert(fb.frames, 0, cp)
	} else {
		fb.frames = append(fb.frames, cp)
	}
	return nil
}

// PopFront removes and returns the first frame. The caller owns the result.
func (fb *FrameBuffer) PopFront() (*pixels.Frame, error) {
	return fb.pop("pop front", true)
}

// PopBack removes and returns the last frame. The caller owns the result.
func (fb *FrameBuffer) PopBack() (*pixels.Frame, error) {
	return fb.pop("pop back", false)
}

func (fb *FrameBuffer) pop(op string, front bool) (*pixels.Frame, error) {
	if !fb.allocated {
		return fb.empty, fb.fail(op, ErrNotAllocated)
	}
	if len(fb.frames) == 0 {
		return fb.empty, fb.fail(op, ErrEmptyBuffer)
	}

	var f *pixels.Frame
	if front {
		f = fb.frames[0]
		fb.frames[0] = nil
		fb.frames = fb.frames[1:]
	} else {
		last := len(fb.frames) - 1
		f = fb.frames[last]
		fb.frames[last] = nil
		fb.frames = fb.frames[:last]
	}
	return f, nil
}

// checkTarget validates the preconditions shared by Replace, Insert and Remove.
func (fb *FrameBuffer) checkTarget(op string) error {
	if !fb.allocated {
		return fb.fail(op, ErrNotAllocated)
	}
	if len(fb.frames) == 0 {
		return fb.fail(op, ErrEmptyBuffer)
	}
	return nil
}

func (fb *FrameBuffer) checkSource(op string, other *FrameBuffer) error {
	if other == nil {
		return fb.fail(op, ErrNoBuffer)
	}
	if other.width != fb.width || other.height != fb.height || other.channels != fb.channels {
		return fb.fail(op, ErrDimensionMismatch,
			pixlog.String("source", other.shape()), pixlog.String("buffer", fb.shape()))
	}
	return nil
}

// Replace overwrites frames starting at the clamped index with other's frames.
// The size never changes; source frames that do not fit are dropped.
func (fb *FrameBuffer) Replace(other *FrameBuffer, index int) error {
	if err := fb.checkTarget("replace"); err != nil {
		return err
	}
	if err := fb.checkSource("replace", other); err != nil {
		return err
	}

	index = fb.clampIndex(index)
	length := min(len(fb.frames)-index, len(other.frames))
	// back to front, so replacing a buffer with itself reads each frame before overwriting it
	for i := length - 1; i >= 0; i-- {
		copy(fb.frames[index+i].Pix, other.frames[i].Pix)
	}
	return nil
}

// Insert splices copies of all of other's frames in front of the clamped index.
func (fb *FrameBuffer) Insert(other *FrameBuffer, index int) error {
	if err := fb.checkTarget("insert"); err != nil {
		return err
	}
	if err := fb.checkSource("insert", other); err != nil {
		return err
	}

	index = fb.clampIndex(index)
	copies := make([]*pixels.Frame, len(other.frames))
	for i, f := range other.frames {
		cp := fb.newFrame()
		copy(cp.Pix, f.Pix)
		copies[i] = cp
	}
	fb.frames = slices.Insert(fb.frames, index, copies...)
	return nil
}

// span resolves a (clamped index, count) pair where a negative count means
// "to the end"; the returned length never runs past the last frame.
func (fb *FrameBuffer) span(index, count int) (int, int) {
	index = fb.clampIndex(index)
	remaining := len(fb.frames) - index
	if count < 0 {
		return index, remaining
	}
	return index, min(remaining, count)
}

// Remove erases up to count frames from the clamped index; count < 0 erases to the end.
func (fb *FrameBuffer) Remove(index, count int) error {
	if err := fb.checkTarget("remove"); err != nil {
		return err
	}

	index, length := fb.span(index, count)
	end := index + length
	fb.release(fb.frames[index:end])
	fb.frames = slices.Delete(fb.frames, index, end)
	return nil
}

// Copy returns a new buffer owning copies of count frames from the clamped index
// (count < 0 copies to the end).
func (fb *FrameBuffer) Copy(index, count int) (*FrameBuffer, error) {
	out := New(WithPool(fb.pool))
	out.logger = fb.logger
	if err := fb.checkTarget("copy"); err != nil {
		return out, err
	}

	index, length := fb.span(index, count)
	out.transferFrom(fb, fb.frames[index:index+length])
	return out, nil
}

// Clone returns a deep copy of the whole buffer.
func (fb *FrameBuffer) Clone() *FrameBuffer {
	out := New(WithPool(fb.pool))
	out.logger = fb.logger
	if fb.allocated {
		out.transferFrom(fb, fb.frames)
	}
	return out
}

// CopyFrom replaces this buffer's shape and contents with a deep copy of src.
func (fb *FrameBuffer) CopyFrom(src *FrameBuffer) error {
	if src == nil {
		return fb.fail("copy from", ErrNoBuffer)
	}
	if !src.allocated {
		return fb.fail("copy from", ErrNotAllocated)
	}
	if src == fb {
		return nil
	}
	fb.release(fb.frames)
	fb.transferFrom(src, src.frames)
	return nil
}

// transferFrom is the single state-transfer routine behind Copy, Clone and CopyFrom.
func (fb *FrameBuffer) transferFrom(src *FrameBuffer, frames []*pixels.Frame) {
	fb.setShape(src.width, src.height, src.channels)
	fb.frames = make([]*pixels.Frame, len(frames))
	for i, f := range frames {
		cp := fb.newFrame()
		copy(cp.Pix, f.Pix)
		fb.frames[i] = cp
	}
}

func (fb *FrameBuffer) shape() string {
	return fmt.Sprintf("%dx%dx%d", fb.width, fb.height, fb.channels)
}

// Empty returns the designated empty frame handed out by failed reads.
func (fb *FrameBuffer) Empty() *pixels.Frame { return fb.empty }

func (fb *FrameBuffer) Width() int        { return fb.width }
func (fb *FrameBuffer) Height() int       { return fb.height }
func (fb *FrameBuffer) Channels() int     { return fb.channels }
func (fb *FrameBuffer) FrameSize() int    { return fb.frameSize }
func (fb *FrameBuffer) Size() int         { return len(fb.frames) }
func (fb *FrameBuffer) IsAllocated() bool { return fb.allocated }
