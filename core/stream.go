package core

import (
	"fmt"

	"github.com/tsawler/pdfstruct/internal/filters"
)

// Decoder applies the filters named in a stream dictionary. The zero value
// decodes FlateDecode only.
type Decoder struct {
	// Extended also enables ASCIIHexDecode, ASCII85Decode, LZWDecode and
	// CCITTFaxDecode.
	Extended bool

	// Resolver, when set, resolves indirect /Filter and /DecodeParms values.
	Resolver ReferenceResolver
}

// Decode decodes the stream with the default decoder. The result is not
// cached; every call decodes the raw data again.
func (s *Stream) Decode() ([]byte, error) {
	return Decoder{}.Decode(s)
}

// Decode returns the decoded payload of s. A stream without /Filter yields
// its raw bytes. Filters are applied in array order, each with the
// DecodeParms entry at the same index.
func (d Decoder) Decode(s *Stream) ([]byte, error) {
	filterObj, err := d.deref(s.Dict.Get("Filter"))
	if err != nil {
		return nil, err
	}
	paramsObj, err := d.deref(s.Dict.Get("DecodeParms"))
	if err != nil {
		return nil, err
	}

	var names []Name
	var params []Object
	switch f := filterObj.(type) {
	case nil, Null:
		return s.Data, nil
	case Name:
		names = []Name{f}
		params = []Object{paramsObj}
	case Array:
		for i, item := range f {
			name, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %s, want a name", i, objectString(item))
			}
			names = append(names, name)
			if arr, ok := paramsObj.(Array); ok {
				params = append(params, arr.Get(i))
			} else {
				params = append(params, paramsObj)
			}
		}
	default:
		return nil, fmt.Errorf("invalid /Filter %s", f)
	}

	data := s.Data
	for i, name := range names {
		p, err := d.deref(params[i])
		if err != nil {
			return nil, err
		}
		pd, _ := p.(*Dict)
		data, err = d.apply(name, data, paramsFromDict(pd))
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return data, nil
}

func (d Decoder) apply(name Name, data []byte, params filters.Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, params)
	}

	if d.Extended {
		switch name {
		case "ASCIIHexDecode", "AHx":
			return filters.ASCIIHexDecode(data)
		case "ASCII85Decode", "A85":
			return filters.ASCII85Decode(data)
		case "LZWDecode", "LZW":
			return filters.LZWDecode(data, params)
		case "CCITTFaxDecode", "CCF":
			return filters.CCITTFaxDecode(data, params)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
}

func (d Decoder) deref(obj Object) (Object, error) {
	ref, ok := obj.(Reference)
	if !ok || d.Resolver == nil {
		return obj, nil
	}
	return d.Resolver.ResolveReference(ref)
}

func paramsFromDict(dict *Dict) filters.Params {
	var p filters.Params
	p.Predictor, _ = dict.GetInt("Predictor")
	p.Colors, _ = dict.GetInt("Colors")
	p.BitsPerComponent, _ = dict.GetInt("BitsPerComponent")
	p.Columns, _ = dict.GetInt("Columns")
	p.K, _ = dict.GetInt("K")
	p.Rows, _ = dict.GetInt("Rows")
	p.BlackIs1, _ = dict.GetBool("BlackIs1")
	return p
}
