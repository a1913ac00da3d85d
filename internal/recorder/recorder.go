// Package recorder streams live frames into a window of a caller-owned FrameBuffer.
package recorder

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/pixels"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

// Recorder copies one incoming frame per In call into [onset, onset+length) of its
// target buffer while armed, and disarms itself once the window is full.
//
// The target is borrowed: whoever owns the FrameBuffer must keep it alive for as
// long as the Recorder is bound to it.
type Recorder struct {
	target  *buffer.FrameBuffer
	armed   bool
	onset   int
	frames  int // negative = to the end of the target
	written int
	take    uuid.UUID
	logger  pixlog.Logger
}

// New returns a recorder bound to target. target may be nil and bound later.
func New(target *buffer.FrameBuffer) *Recorder {
	r := &Recorder{logger: pixlog.L().Named("recorder")}
	r.SetBuffer(target)
	return r
}

// SetLogger replaces the recorder's logger.
func (r *Recorder) SetLogger(l pixlog.Logger) {
	if l != nil {
		r.logger = l.Named("recorder")
	}
}

// SetBuffer binds a new target, resets the written counter and disarms.
func (r *Recorder) SetBuffer(target *buffer.FrameBuffer) {
	r.target = target
	r.written = 0
	r.armed = false
}

// Buffer returns the bound target (nil if unbound).
func (r *Recorder) Buffer() *buffer.FrameBuffer { return r.target }

// HasBuffer reports whether a target is bound.
func (r *Recorder) HasBuffer() bool { return r.target != nil }

func (r *Recorder) fail(op string, err error) error {
	r.logger.Warn(op+" failed", pixlog.Error(err))
	return fmt.Errorf("recorder %s: %w", op, err)
}

// Record arms the recorder for a new take of frames frames starting at onset.
// A negative frames value records to the end of the target.
func (r *Recorder) Record(onset, frames int) error {
	if r.target == nil {
		return r.fail("record", buffer.ErrNoBuffer)
	}
	r.armed = true
	r.onset = onset
	r.frames = frames
	r.written = 0
	r.take = uuid.New()
	r.logger.Debug("recording armed",
		pixlog.String("take", r.take.String()),
		pixlog.Int("onset", onset),
		pixlog.Int("frames", frames))
	return nil
}

// Stop disarms without touching the window or counter.
func (r *Recorder) Stop() error {
	if r.target == nil {
		return r.fail("stop", buffer.ErrNoBuffer)
	}
	r.armed = false
	return nil
}

// Resume re-arms without touching the window or counter.
func (r *Recorder) Resume() error {
	if r.target == nil {
		return r.fail("resume", buffer.ErrNoBuffer)
	}
	r.armed = true
	return nil
}

// window resolves onset and length against the target's current size.
func (r *Recorder) window() (onset, length int) {
	size := r.target.Size()
	onset = max(0, min(size-1, r.onset))
	if r.frames < 0 {
		return onset, size - onset
	}
	return onset, max(1, min(size-onset, r.frames))
}

// In records frame if armed. Once the window is full the next call disarms
// without writing.
func (r *Recorder) In(frame *pixels.Frame) error {
	if r.target == nil {
		return r.fail("in", buffer.ErrNoBuffer)
	}
	if !r.armed {
		return nil
	}
	if !frame.HasShape(r.target.Width(), r.target.Height(), r.target.Channels()) {
		return r.fail("in", buffer.ErrDimensionMismatch)
	}

	onset, length := r.window()
	if r.written >= length {
		r.armed = false
		r.logger.Debug("recording complete",
			pixlog.String("take", r.take.String()),
			pixlog.Int("frames", r.written))
		return nil
	}

	if err := r.target.Write(onset+r.written, frame); err != nil {
		return err
	}
	r.written++
	return nil
}

// IsRecording reports whether the recorder is armed.
func (r *Recorder) IsRecording() bool { return r.armed }

// RecordedFrames is the number of frames written in the current take.
func (r *Recorder) RecordedFrames() int { return r.written }

// CurrentIndex is the unclamped target index the next frame would go to.
func (r *Recorder) CurrentIndex() int { return r.onset + r.written }

// TakeID identifies the current take; uuid.Nil before the first Record.
func (r *Recorder) TakeID() uuid.UUID { return r.take }
