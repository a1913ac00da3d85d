// Package pixels defines the fixed-shape pixel frame shared by every buffer,
// recorder and player in the module, plus conversions to image.Image and gocv.Mat.
package pixels

import "fmt"

// MaxChannels is the largest channel count a Frame can carry.
const MaxChannels = 4

// PixelFormat names the channel layout reported by decoders.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatGray
	FormatRGB
	FormatRGBA
)

// Channels maps a pixel format to its channel count (0 for unknown formats).
func (f PixelFormat) Channels() int {
	switch f {
	case FormatGray:
		return 1
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatGray:
		return "gray"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Frame is a rectangular 8-bit image stored as interleaved channels, row major.
// len(Pix) == Width*Height*Channels for every frame built through this package.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// New returns a zero-filled frame. Negative dimensions are treated as zero.
func New(width, height, channels int) *Frame {
	width = max(0, width)
	height = max(0, height)
	channels = max(0, channels)
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// FromBytes wraps an existing payload after checking its length.
// The payload is not copied.
func FromBytes(width, height, channels int, pix []byte) (*Frame, error) {
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("pixels: unsupported channel count %d", channels)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixels: invalid dimensions %dx%d", width, height)
	}
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("pixels: payload is %d bytes, want %d", len(pix), want)
	}
	return &Frame{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// Size is the payload length in bytes.
func (f *Frame) Size() int {
	if f == nil {
		return 0
	}
	return f.Width * f.Height * f.Channels
}

// IsEmpty reports whether the frame carries no pixels.
func (f *Frame) IsEmpty() bool {
	return f == nil || len(f.Pix) == 0
}

// SameShape reports whether both frames share width, height and channel count.
func (f *Frame) SameShape(o *Frame) bool {
	if f == nil || o == nil {
		return false
	}
	return f.Width == o.Width && f.Height == o.Height && f.Channels == o.Channels
}

// HasShape compares against explicit dimensions.
func (f *Frame) HasShape(width, height, channels int) bool {
	return f != nil && f.Width == width && f.Height == height && f.Channels == channels
}

// Format reports the pixel format implied by the channel count.
func (f *Frame) Format() PixelFormat {
	switch f.Channels {
	case 1:
		return FormatGray
	case 3:
		return FormatRGB
	case 4:
		return FormatRGBA
	default:
		return FormatUnknown
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Pix = make([]byte, len(f.Pix))
	copy(cp.Pix, f.Pix)
	return &cp
}

// CopyFrom overwrites the payload with src's payload. Shapes must match.
func (f *Frame) CopyFrom(src *Frame) error {
	if !f.SameShape(src) {
		return fmt.Errorf("pixels: shape %s does not match %s", src, f)
	}
	copy(f.Pix, src.Pix)
	return nil
}

// Zero clears every byte of the payload.
func (f *Frame) Zero() {
	if f == nil {
		return
	}
	clear(f.Pix)
}

func (f *Frame) String() string {
	if f == nil {
		return "<nil frame>"
	}
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Height, f.Channels)
}
