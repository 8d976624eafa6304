package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data with the default early code-width change,
// then reverses any predictor the same way FlateDecode does.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	rc := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return unpredict(raw, params)
}
