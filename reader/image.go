package reader

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/bmp"

	"github.com/tsawler/pdfstruct/core"
)

// Image is a decoded image XObject.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string // DeviceGray, DeviceRGB, DeviceCMYK, ...
	BitsPerComponent int
	Data             []byte // decoded samples
}

// Image decodes the image XObject obj, which may be a reference.
func (r *Reader) Image(obj core.Object) (*Image, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("image is %s, want a stream", describe(resolved))
	}
	if sub, _ := stream.Dict.GetName("Subtype"); sub != "Image" {
		return nil, fmt.Errorf("stream /Subtype is %s, want /Image", describe(stream.Dict.Get("Subtype")))
	}

	width, okW := stream.Dict.GetInt("Width")
	height, okH := stream.Dict.GetInt("Height")
	if !okW || !okH || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has invalid /Width or /Height")
	}

	bpc := 8
	if mask, _ := stream.Dict.GetBool("ImageMask"); mask {
		bpc = 1
	} else if n, ok := stream.Dict.GetInt("BitsPerComponent"); ok {
		bpc = n
	}

	data, err := r.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image stream: %w", err)
	}

	return &Image{
		Width:            width,
		Height:           height,
		ColorSpace:       r.colorSpaceName(stream.Dict.Get("ColorSpace")),
		BitsPerComponent: bpc,
		Data:             data,
	}, nil
}

// colorSpaceName reduces a color space to the device family used for
// conversion. Indexed spaces report their base.
func (r *Reader) colorSpaceName(obj core.Object) string {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return "DeviceGray"
	}

	switch v := resolved.(type) {
	case core.Name:
		return string(v)
	case core.Array:
		name, _ := v.GetName(0)
		switch name {
		case "Indexed":
			return r.colorSpaceName(v.Get(1))
		case "ICCBased":
			if s, ok := r.resolveStream(v.Get(1)); ok {
				switch n, _ := s.Dict.GetInt("N"); n {
				case 3:
					return "DeviceRGB"
				case 4:
					return "DeviceCMYK"
				}
			}
			return "DeviceGray"
		case "":
			return "DeviceGray"
		}
		return string(name)
	}
	return "DeviceGray"
}

func (r *Reader) resolveStream(obj core.Object) (*core.Stream, bool) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, false
	}
	s, ok := resolved.(*core.Stream)
	return s, ok
}

// ToImage converts the samples to an image.Image.
func (img *Image) ToImage() (image.Image, error) {
	switch img.ColorSpace {
	case "DeviceRGB", "CalRGB":
		return img.rgb()
	case "DeviceCMYK":
		return img.cmyk()
	default:
		return img.gray()
	}
}

// WriteBMP encodes the image as BMP.
func (img *Image) WriteBMP(w io.Writer) error {
	m, err := img.ToImage()
	if err != nil {
		return err
	}
	return bmp.Encode(w, m)
}

// WritePNG encodes the image as PNG.
func (img *Image) WritePNG(w io.Writer) error {
	m, err := img.ToImage()
	if err != nil {
		return err
	}
	return png.Encode(w, m)
}

func (img *Image) need(n int) error {
	if len(img.Data) < n {
		return fmt.Errorf("insufficient image data: got %d, expected %d", len(img.Data), n)
	}
	return nil
}

// gray handles 1, 2, 4 and 8 bit single-channel samples, rows padded to a
// byte boundary.
func (img *Image) gray() (*image.Gray, error) {
	bpc := img.BitsPerComponent
	switch bpc {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", bpc)
	}

	stride := (img.Width*bpc + 7) / 8
	if err := img.need(stride * img.Height); err != nil {
		return nil, err
	}

	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	maxVal := (1 << bpc) - 1
	perByte := 8 / bpc
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*stride : (y+1)*stride]
		for x := 0; x < img.Width; x++ {
			b := row[x/perByte]
			shift := uint(8 - bpc*(x%perByte+1))
			v := int(b>>shift) & maxVal
			out.Pix[y*out.Stride+x] = uint8(v * 255 / maxVal)
		}
	}
	return out, nil
}

func (img *Image) rgb() (*image.RGBA, error) {
	if img.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for RGB: %d", img.BitsPerComponent)
	}
	if err := img.need(img.Width * img.Height * 3); err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		copy(out.Pix[i*4:i*4+3], img.Data[i*3:i*3+3])
		out.Pix[i*4+3] = 255
	}
	return out, nil
}

func (img *Image) cmyk() (*image.RGBA, error) {
	if img.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for CMYK: %d", img.BitsPerComponent)
	}
	if err := img.need(img.Width * img.Height * 4); err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		s := img.Data[i*4 : i*4+4]
		r, g, b := color.CMYKToRGB(s[0], s[1], s[2], s[3])
		out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = r, g, b, 255
	}
	return out, nil
}
