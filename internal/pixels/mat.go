package pixels

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FromMat copies an 8-bit OpenCV Mat into a Frame, converting BGR(A) channel
// order to RGB(A). The Mat is not closed.
func FromMat(mat gocv.Mat) (*Frame, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("pixels: empty Mat")
	}

	var (
		src      = mat
		channels int
		code     gocv.ColorConversionCode
		convert  bool
	)
	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		channels = 1
	case gocv.MatTypeCV8UC3:
		channels, code, convert = 3, gocv.ColorBGRToRGB, true
	case gocv.MatTypeCV8UC4:
		channels, code, convert = 4, gocv.ColorBGRAToRGBA, true
	default:
		return nil, fmt.Errorf("pixels: unsupported Mat type %v", mat.Type())
	}

	if convert {
		dst := gocv.NewMat()
		defer dst.Close()
		gocv.CvtColor(mat, &dst, code)
		src = dst
	}

	data := src.ToBytes()
	return FromBytes(src.Cols(), src.Rows(), channels, data)
}

// ToMat converts the frame into a BGR(A) Mat. Returns a Mat you own - caller must Close() it.
func (f *Frame) ToMat() (gocv.Mat, error) {
	if f.IsEmpty() {
		return gocv.NewMat(), fmt.Errorf("pixels: empty frame")
	}

	var (
		mt      gocv.MatType
		code    gocv.ColorConversionCode
		convert bool
	)
	switch f.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt, code, convert = gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR, true
	case 4:
		mt, code, convert = gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGRA, true
	default:
		return gocv.NewMat(), fmt.Errorf("pixels: no Mat layout for %d channels", f.Channels)
	}

	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("pixels: failed to create Mat: %v", err)
	}
	if !convert {
		return mat, nil
	}

	result := gocv.NewMat()
	gocv.CvtColor(mat, &result, code)
	mat.Close()
	return result, nil
}
