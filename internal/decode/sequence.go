package decode

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
)

// Capabilities describes how a SequenceDecoder must be driven.
type Capabilities struct {
	// RequiresPolling is set by decoders that produce frames on a background
	// thread: after every seek the caller must wait until NewFrameReady reports
	// true before reading CurrentFrame.
	RequiresPolling bool
}

// SequenceDecoder is a seekable movie or frame-sequence source.
type SequenceDecoder interface {
	Load(path string) error
	Width() int
	Height() int
	PixelFormat() pixels.PixelFormat
	TotalFrames() int

	SetFrame(index int) error
	NextFrame() error
	CurrentFrame() (*pixels.Frame, error)

	// NewFrameReady is only meaningful when Capabilities().RequiresPolling.
	NewFrameReady() bool
	SetSpeed(speed float64)
	Play()

	Capabilities() Capabilities
}

var _ SequenceDecoder = (*VideoDecoder)(nil)

// VideoDecoder reads movie files with OpenCV. Reads are synchronous so it never
// needs polling.
type VideoDecoder struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	width   int
	height  int
	frames  int
	speed   float64
}

// NewVideoDecoder returns a decoder with nothing loaded. Close releases it.
func NewVideoDecoder() *VideoDecoder {
	return &VideoDecoder{mat: gocv.NewMat(), speed: 1}
}

func (v *VideoDecoder) Load(path string) error {
	v.closeCapture()

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrDecode, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: open %s", ErrDecode, path)
	}

	v.capture = capture
	v.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	v.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	v.frames = int(capture.Get(gocv.VideoCaptureFrameCount))
	return v.read()
}

func (v *VideoDecoder) read() error {
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		return fmt.Errorf("%w: no frame at %d", ErrDecode, int(v.capture.Get(gocv.VideoCapturePosFrames)))
	}
	return nil
}

func (v *VideoDecoder) loaded() error {
	if v.capture == nil {
		return fmt.Errorf("%w: no movie loaded", ErrDecode)
	}
	return nil
}

func (v *VideoDecoder) Width() int  { return v.width }
func (v *VideoDecoder) Height() int { return v.height }

// PixelFormat is always RGB: OpenCV hands out 3-channel BGR frames, which
// pixels.FromMat reorders.
func (v *VideoDecoder) PixelFormat() pixels.PixelFormat { return pixels.FormatRGB }

func (v *VideoDecoder) TotalFrames() int { return v.frames }

func (v *VideoDecoder) SetFrame(index int) error {
	if err := v.loaded(); err != nil {
		return err
	}
	v.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	return v.read()
}

func (v *VideoDecoder) NextFrame() error {
	if err := v.loaded(); err != nil {
		return err
	}
	return v.read()
}

func (v *VideoDecoder) CurrentFrame() (*pixels.Frame, error) {
	if err := v.loaded(); err != nil {
		return nil, err
	}
	return pixels.FromMat(v.mat)
}

func (v *VideoDecoder) NewFrameReady() bool { return v.capture != nil && !v.mat.Empty() }

// SetSpeed is recorded only; frames are pulled explicitly.
func (v *VideoDecoder) SetSpeed(speed float64) { v.speed = speed }

func (v *VideoDecoder) Play() {}

func (v *VideoDecoder) Capabilities() Capabilities { return Capabilities{} }

func (v *VideoDecoder) closeCapture() {
	if v.capture != nil {
		v.capture.Close()
		v.capture = nil
	}
}

// Close releases the capture and the frame Mat.
func (v *VideoDecoder) Close() error {
	v.closeCapture()
	return v.mat.Close()
}
