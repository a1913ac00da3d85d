package pixels

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClampsNegativeDimensions(t *testing.T) {
	f := New(-3, 2, 3)
	assert.Equal(t, 0, f.Width)
	assert.Equal(t, 0, f.Size())
	assert.True(t, f.IsEmpty())
}

func TestFromBytesValidates(t *testing.T) {
	testCases := []struct {
		name     string
		w, h, c  int
		payload  int
		expectOK bool
	}{
		{"rgb", 2, 2, 3, 12, true},
		{"short payload", 2, 2, 3, 11, false},
		{"five channels", 2, 2, 5, 20, false},
		{"zero width", 0, 2, 1, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := FromBytes(tc.w, tc.h, tc.c, make([]byte, tc.payload))
			if tc.expectOK {
				require.NoError(t, err)
				assert.Equal(t, tc.payload, f.Size())
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := New(2, 1, 1)
	f.Pix[0] = 7
	cp := f.Clone()
	cp.Pix[0] = 9
	assert.Equal(t, byte(7), f.Pix[0])
	assert.True(t, f.SameShape(cp))
}

func TestCopyFromRejectsShape(t *testing.T) {
	dst := New(2, 2, 3)
	assert.Error(t, dst.CopyFrom(New(2, 2, 4)))

	src := New(2, 2, 3)
	src.Pix[5] = 200
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, byte(200), dst.Pix[5])
}

func TestFormatChannels(t *testing.T) {
	assert.Equal(t, 1, FormatGray.Channels())
	assert.Equal(t, 3, FormatRGB.Channels())
	assert.Equal(t, 4, FormatRGBA.Channels())
	assert.Equal(t, 0, FormatUnknown.Channels())
	assert.Equal(t, FormatRGB, New(1, 1, 3).Format())
}

func TestImageConversions(t *testing.T) {
	t.Run("gray keeps one channel", func(t *testing.T) {
		g := image.NewGray(image.Rect(0, 0, 3, 2))
		g.SetGray(1, 1, color.Gray{Y: 42})
		f, err := FromImage(g)
		require.NoError(t, err)
		assert.Equal(t, 1, f.Channels)
		assert.Equal(t, byte(42), f.Pix[1*3+1])

		back, err := f.ToImage()
		require.NoError(t, err)
		assert.Equal(t, g.Pix, back.(*image.Gray).Pix)
	})

	t.Run("opaque nrgba becomes rgb", func(t *testing.T) {
		n := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		for i := 0; i < len(n.Pix); i += 4 {
			n.Pix[i], n.Pix[i+1], n.Pix[i+2], n.Pix[i+3] = 10, 20, 30, 255
		}
		f, err := FromImage(n)
		require.NoError(t, err)
		assert.Equal(t, 3, f.Channels)
		assert.Equal(t, []byte{10, 20, 30}, f.Pix[:3])

		back, err := f.ToImage()
		require.NoError(t, err)
		assert.Equal(t, n.Pix, back.(*image.NRGBA).Pix)
	})

	t.Run("translucent keeps alpha", func(t *testing.T) {
		n := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		n.Pix[0], n.Pix[3] = 99, 128
		f, err := FromImage(n)
		require.NoError(t, err)
		assert.Equal(t, 4, f.Channels)
		assert.Equal(t, []byte{99, 0, 0, 128}, f.Pix)
	})

	t.Run("gray sub-image", func(t *testing.T) {
		g := image.NewGray(image.Rect(0, 0, 4, 4))
		for i := range g.Pix {
			g.Pix[i] = byte(i)
		}
		f, err := FromImage(g.SubImage(image.Rect(1, 1, 3, 3)))
		require.NoError(t, err)
		assert.Equal(t, 2, f.Width)
		assert.Equal(t, []byte{5, 6, 9, 10}, f.Pix)
	})

	t.Run("nrgba sub-image", func(t *testing.T) {
		n := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		for i := 0; i < 16; i++ {
			n.Pix[i*4], n.Pix[i*4+3] = byte(i), 255
		}
		f, err := FromImage(n.SubImage(image.Rect(2, 2, 4, 4)))
		require.NoError(t, err)
		assert.Equal(t, 3, f.Channels)
		assert.Equal(t, []byte{10, 0, 0, 11, 0, 0, 14, 0, 0, 15, 0, 0}, f.Pix)
	})

	t.Run("nil and empty", func(t *testing.T) {
		_, err := FromImage(nil)
		assert.Error(t, err)
		_, err = (&Frame{}).ToImage()
		assert.Error(t, err)
	})
}
