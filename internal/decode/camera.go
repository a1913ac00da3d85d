package decode

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
)

// Camera reads live frames from a capture device.
type Camera struct {
	device  int
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenCamera opens capture device id. Close releases it.
func OpenCamera(id int) (*Camera, error) {
	capture, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", ErrDecode, id, err)
	}
	return &Camera{device: id, capture: capture, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame. The returned frame is a copy owned by the caller.
func (c *Camera) Read() (*pixels.Frame, error) {
	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("%w: device %d returned no frame", ErrDecode, c.device)
	}
	return pixels.FromMat(c.mat)
}

func (c *Camera) Close() error {
	c.capture.Close()
	return c.mat.Close()
}
