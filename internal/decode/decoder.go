// Package decode turns image files, numbered image sequences and movies into
// frames and loads them into a buffer.FrameBuffer.
package decode

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
)

var (
	// ErrDecode is returned when a collaborator fails to produce a frame.
	ErrDecode = errors.New("decode failed")
	// ErrNoWildcard is returned for a sequence pattern without exactly one '*'.
	ErrNoWildcard = errors.New("path must contain one wildcard [*]")
	// ErrNoDecoder is returned by a MovieLoader with no decoder bound.
	ErrNoDecoder = errors.New("no decoder bound")
)

// Decoder decodes a single still image into a frame with 1, 3 or 4 channels.
type Decoder interface {
	Decode(path string) (*pixels.Frame, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(path string) (*pixels.Frame, error)

func (f DecoderFunc) Decode(path string) (*pixels.Frame, error) { return f(path) }

// ImageDecoder decodes through the image package: PNG, JPEG, GIF, BMP, TIFF and WebP.
type ImageDecoder struct{}

func (ImageDecoder) Decode(path string) (*pixels.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	frame, err := pixels.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return frame, nil
}

// MatDecoder decodes through OpenCV, keeping the file's own channel count.
type MatDecoder struct{}

func (MatDecoder) Decode(path string) (*pixels.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: %s: unreadable", ErrDecode, path)
	}

	frame, err := pixels.FromMat(mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return frame, nil
}
