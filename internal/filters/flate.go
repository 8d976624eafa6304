package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfstruct/logging"
)

// ErrUnsupported is returned for filters and predictors this package does
// not implement.
var ErrUnsupported = errors.New("unsupported filter")

// Params holds the integer decode parameters of a stream. A zero field means
// the entry was absent; each filter applies its own default.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int

	// CCITTFaxDecode only
	K        int
	Rows     int
	BlackIs1 bool
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// FlateDecode inflates zlib data and reverses PNG prediction when the
// predictor is 10 or greater. Predictor 1 (or absent) returns the inflated
// bytes unchanged; every other predictor is unsupported.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	inflated, err := inflate(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	return unpredict(inflated, params)
}

func unpredict(data []byte, params Params) ([]byte, error) {
	predictor := orDefault(params.Predictor, 1)
	switch {
	case predictor == 1:
		return data, nil
	case predictor >= 10:
		return unpredictPNG(data, params)
	default:
		return nil, fmt.Errorf("%w: predictor %d", ErrUnsupported, predictor)
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxPredictorSamples bounds Columns*Colors*BitsPerComponent for one row.
const maxPredictorSamples = 1 << 30

// unpredictPNG reverses PNG row filtering. Every row is one filter-type byte
// followed by Columns*Colors samples. The filter type of each row is taken
// from the data, not from the Predictor value.
func unpredictPNG(data []byte, params Params) ([]byte, error) {
	columns := orDefault(params.Columns, 1)
	colors := orDefault(params.Colors, 1)
	bpc := orDefault(params.BitsPerComponent, 8)
	if columns <= 0 || colors <= 0 || colors > 256 || bpc <= 0 || bpc > 16 ||
		columns > maxPredictorSamples/(colors*bpc) {
		return nil, fmt.Errorf("%w: predictor parameters /Columns %d /Colors %d /BitsPerComponent %d",
			ErrUnsupported, columns, colors, bpc)
	}

	rowLen := (columns*colors*bpc + 7) / 8
	bpp := (colors*bpc + 7) / 8
	stride := rowLen + 1

	rows := len(data) / stride
	if rem := len(data) % stride; rem != 0 {
		logging.Logger().Warn("dropping truncated predictor row",
			"have", rem, "want", stride)
	}

	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for row := 0; row < rows; row++ {
		src := data[row*stride : (row+1)*stride]
		cur := out[row*rowLen : (row+1)*rowLen]
		if err := unfilterRow(src[0], src[1:], prev, cur, bpp); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		prev = cur
	}
	return out, nil
}

// unfilterRow decodes one row. Types: 0=None, 1=Sub, 2=Up, 3=Average, 4=Paeth.
func unfilterRow(kind byte, src, prev, dst []byte, bpp int) error {
	for i := range src {
		var left, upLeft byte
		up := prev[i]
		if i >= bpp {
			left = dst[i-bpp]
			upLeft = prev[i-bpp]
		}

		switch kind {
		case 0:
			dst[i] = src[i]
		case 1:
			dst[i] = src[i] + left
		case 2:
			dst[i] = src[i] + up
		case 3:
			dst[i] = src[i] + byte((int(left)+int(up))/2)
		case 4:
			dst[i] = src[i] + paeth(left, up, upLeft)
		default:
			return fmt.Errorf("unknown PNG filter type %d", kind)
		}
	}
	return nil
}

// paeth selects the neighbor (left, above or upper-left) closest to
// a + b - c.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
