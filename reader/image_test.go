package reader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/internal/pdftest"
)

func imageDoc() []byte {
	return pdftest.New("1.4").
		Object(1, "<< /Type /Catalog >>").
		Stream(2, "/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8",
			[]byte{0x00, 0x40, 0x80, 0xFF}).
		FlateStream(3, "/Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8",
			[]byte{0xFF, 0x00, 0x00}).
		Stream(4, "/Subtype /Image /Width 8 /Height 1 /ImageMask true", []byte{0xAA}).
		Stream(5, "/Subtype /Image /Width 1 /Height 1 /ColorSpace [/ICCBased 6 0 R] /BitsPerComponent 8",
			[]byte{0x00, 0xFF, 0x00}).
		Stream(6, "/N 3", []byte("icc")).
		Stream(7, "/Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceCMYK /BitsPerComponent 8",
			[]byte{0x00, 0x00, 0x00, 0xFF}).
		Stream(8, "/Subtype /Image /Width 2 /Height 1 /ColorSpace [/Indexed /DeviceGray 1 <00FF>] /BitsPerComponent 8",
			[]byte{0x00, 0x01}).
		Stream(9, "/Subtype /Form", []byte("q Q")).
		Stream(10, "/Subtype /Image /Width 4 /Height 4 /ColorSpace /DeviceGray", []byte{0x01}).
		Stream(11, "/Subtype /Image /Width 1 /Height 1 /Filter /DCTDecode", []byte{0xFF, 0xD8}).
		XRefTable("/Root 1 0 R").
		Bytes()
}

func TestImageGray(t *testing.T) {
	r := open(t, imageDoc())

	img, err := r.Image(core.Reference{Number: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, "DeviceGray", img.ColorSpace)
	assert.Equal(t, 8, img.BitsPerComponent)

	m, err := img.ToImage()
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 0x80}, m.At(0, 1))
	assert.Equal(t, color.Gray{Y: 0xFF}, m.At(1, 1))
}

func TestImageRGBFlate(t *testing.T) {
	r := open(t, imageDoc())
	img, err := r.Image(core.Reference{Number: 3})
	require.NoError(t, err)

	m, err := img.ToImage()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, m.At(0, 0))
}

func TestImageMask(t *testing.T) {
	r := open(t, imageDoc())
	img, err := r.Image(core.Reference{Number: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, img.BitsPerComponent)

	m, err := img.ToImage()
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 0xFF}, m.At(0, 0))
	assert.Equal(t, color.Gray{Y: 0x00}, m.At(1, 0))
}

func TestImageColorSpaces(t *testing.T) {
	r := open(t, imageDoc())
	tests := []struct {
		num  int
		want string
	}{
		{5, "DeviceRGB"},
		{7, "DeviceCMYK"},
		{8, "DeviceGray"},
	}
	for _, tt := range tests {
		img, err := r.Image(core.Reference{Number: tt.num})
		require.NoError(t, err)
		assert.Equal(t, tt.want, img.ColorSpace, "object %d", tt.num)
		_, err = img.ToImage()
		assert.NoError(t, err, "object %d", tt.num)
	}

	cmyk, err := r.Image(core.Reference{Number: 7})
	require.NoError(t, err)
	m, err := cmyk.ToImage()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 0xFF}, m.At(0, 0))
}

func TestImageErrors(t *testing.T) {
	r := open(t, imageDoc())
	tests := []struct {
		name string
		obj  core.Object
	}{
		{"not a stream", core.Reference{Number: 1}},
		{"form xobject", core.Reference{Number: 9}},
		{"missing object", core.Reference{Number: 50}},
		{"unsupported filter", core.Reference{Number: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Image(tt.obj)
			assert.Error(t, err)
		})
	}

	short, err := r.Image(core.Reference{Number: 10})
	require.NoError(t, err)
	_, err = short.ToImage()
	assert.ErrorContains(t, err, "insufficient image data")
}

func TestImageEncoders(t *testing.T) {
	r := open(t, imageDoc())
	img, err := r.Image(core.Reference{Number: 2})
	require.NoError(t, err)

	var bmpBuf bytes.Buffer
	require.NoError(t, img.WriteBMP(&bmpBuf))
	decoded, err := bmp.Decode(&bmpBuf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), decoded.Bounds())

	var pngBuf bytes.Buffer
	require.NoError(t, img.WritePNG(&pngBuf))
	decoded, err = png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), decoded.Bounds())
}
