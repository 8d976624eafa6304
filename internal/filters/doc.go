// Package filters implements the stream decoding filters.
//
// FlateDecode is always available. It reverses PNG predictors (Predictor 10
// and above, with the per-row filter type taken from the data); Predictor 1
// or an absent predictor returns the inflated bytes as-is and every other
// predictor yields ErrUnsupported.
//
//	decoded, err := filters.FlateDecode(data, filters.Params{Predictor: 12, Columns: 5})
//
// ASCIIHexDecode, ASCII85Decode, LZWDecode and CCITTFaxDecode are offered for
// callers that opt into extended decoding.
package filters
