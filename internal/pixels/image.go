package pixels

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// FromImage converts any image.Image into a tightly packed Frame.
// Gray images keep one channel, opaque images become RGB and everything else RGBA.
func FromImage(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("pixels: nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("pixels: empty image bounds")
	}
	w, h := bounds.Dx(), bounds.Dy()

	switch im := img.(type) {
	case *image.Gray:
		f := New(w, h, 1)
		for y := 0; y < h; y++ {
			src := im.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(f.Pix[y*w:(y+1)*w], im.Pix[src:src+w])
		}
		return f, nil
	case *image.NRGBA:
		if im.Opaque() {
			return packNRGBA(im, 3), nil
		}
		return packNRGBA(im, 4), nil
	}

	// Normalize through NRGBA so premultiplied and YCbCr sources unpack correctly.
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Rect, img, bounds.Min, draw.Src)

	channels := 4
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		channels = 3
	}
	return packNRGBA(nrgba, channels), nil
}

func packNRGBA(im *image.NRGBA, channels int) *Frame {
	w, h := im.Rect.Dx(), im.Rect.Dy()
	f := New(w, h, channels)
	dst := 0
	for y := 0; y < h; y++ {
		row := im.PixOffset(im.Rect.Min.X, im.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			idx := row + x*4
			copy(f.Pix[dst:dst+channels], im.Pix[idx:idx+channels])
			dst += channels
		}
	}
	return f
}

// ToImage renders the frame as an image.Image. One channel yields *image.Gray,
// two channels (gray + alpha) and three or four channels yield *image.NRGBA.
func (f *Frame) ToImage() (image.Image, error) {
	if f.IsEmpty() {
		return nil, fmt.Errorf("pixels: empty frame")
	}
	if len(f.Pix) != f.Size() {
		return nil, fmt.Errorf("pixels: payload is %d bytes, want %d", len(f.Pix), f.Size())
	}
	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Channels {
	case 1:
		g := image.NewGray(rect)
		copy(g.Pix, f.Pix)
		return g, nil
	case 4:
		n := image.NewNRGBA(rect)
		copy(n.Pix, f.Pix)
		return n, nil
	case 2, 3:
		n := image.NewNRGBA(rect)
		src := 0
		for i := 0; i < f.Width*f.Height; i++ {
			var c color.NRGBA
			if f.Channels == 2 {
				c = color.NRGBA{R: f.Pix[src], G: f.Pix[src], B: f.Pix[src], A: f.Pix[src+1]}
			} else {
				c = color.NRGBA{R: f.Pix[src], G: f.Pix[src+1], B: f.Pix[src+2], A: 0xff}
			}
			n.Pix[i*4], n.Pix[i*4+1], n.Pix[i*4+2], n.Pix[i*4+3] = c.R, c.G, c.B, c.A
			src += f.Channels
		}
		return n, nil
	default:
		return nil, fmt.Errorf("pixels: unsupported channel count %d", f.Channels)
	}
}
