package font

import (
	"fmt"

	"golang.org/x/text/encoding/japanese"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/logging"
)

// Resolver gives a font access to the document it belongs to.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
	Decode(s *core.Stream) ([]byte, error)
}

// Predefined CMaps used for composite fonts without a /ToUnicode entry,
// keyed by Registry-Ordering.
var predefinedCMaps = map[string]string{
	"Adobe-Japan1": "UniJIS2004-UTF16-H",
}

// Font is a font resource prepared for decoding shown strings.
type Font struct {
	Name     string // resource name, e.g. F1
	Subtype  string
	BaseFont string
	Encoding string

	// From the CIDSystemInfo of a composite font's descendant.
	Registry string
	Ordering string

	// Font descriptor metrics, in glyph space units.
	Ascent    float64
	Descent   float64
	CapHeight float64
	FontBBox  [4]float64

	ToUnicode *CMap

	simple *SimpleEncoding
	cids   *CMap
}

// New reads the font dictionary dict. A /ToUnicode stream that cannot be
// decoded or parsed is logged and ignored; only resolution failures are
// returned.
func New(name string, dict *core.Dict, res Resolver, cmaps *CMapStore) (*Font, error) {
	f := &Font{
		Name:      name,
		Ascent:    1000,
		CapHeight: 733,
		FontBBox:  [4]float64{0, 0, 1000, 1000},
	}
	if dict == nil {
		return f, nil
	}

	if v, ok := dict.GetName("Subtype"); ok {
		f.Subtype = string(v)
	}
	if v, ok := dict.GetName("BaseFont"); ok {
		f.BaseFont = string(v)
	}

	if err := f.readEncoding(dict, res); err != nil {
		return nil, err
	}
	if err := f.readToUnicode(dict, res); err != nil {
		return nil, err
	}

	descendant, err := f.descendant(dict, res)
	if err != nil {
		return nil, err
	}
	if descendant != nil {
		if err := f.readCIDSystemInfo(descendant, res); err != nil {
			return nil, err
		}
	}

	if f.IsComposite() && f.ToUnicode == nil && f.Encoding != "90ms-RKSJ-H" {
		f.loadPredefined(cmaps)
	}

	descriptor, err := f.descriptor(dict, descendant, res)
	if err != nil {
		return nil, err
	}
	if descriptor != nil {
		f.readMetrics(descriptor, res)
	}
	return f, nil
}

// IsComposite reports whether this is a Type0 font, whose codes are
// multi-byte.
func (f *Font) IsComposite() bool {
	return f.Subtype == "Type0"
}

// IsVertical reports whether the encoding selects vertical writing.
func (f *Font) IsVertical() bool {
	return f.Encoding == "Identity-V" || f.Encoding == "90ms-RKSJ-V"
}

// Differences returns the code to glyph-name overrides of a simple font.
func (f *Font) Differences() map[byte]string {
	if f.simple == nil {
		return nil
	}
	return f.simple.Differences
}

// Decode converts the codes of a shown string to text. The /ToUnicode CMap
// is preferred; 90ms-RKSJ-H strings are Shift-JIS; other composite fonts go
// through a predefined CID CMap in 2-byte units; simple fonts use their
// encoding. Codes that cannot be mapped become U+FFFD.
func (f *Font) Decode(data []byte) string {
	if f.ToUnicode != nil {
		return NormalizeUnicode(f.ToUnicode.Decode(data))
	}

	if !f.IsComposite() {
		enc := f.simple
		if enc == nil {
			enc = NewSimpleEncoding(f.Encoding, nil)
		}
		return NormalizeUnicode(enc.Decode(data))
	}

	switch f.Encoding {
	case "90ms-RKSJ-H", "90ms-RKSJ-V":
		out, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil {
			logging.Logger().Debug("invalid Shift-JIS string", "font", f.Name, "error", err)
			return string(ReplacementChar)
		}
		return NormalizeUnicode(string(out))
	}

	cids := f.cids
	if cids == nil {
		cids = NewCMap()
	}
	return UnifyIdeographs(cids.DecodeUnits(data, 2))
}

func (f *Font) readEncoding(dict *core.Dict, res Resolver) error {
	obj, err := res.Resolve(dict.Get("Encoding"))
	if err != nil {
		return fmt.Errorf("font %s: failed to resolve /Encoding: %w", f.Name, err)
	}

	switch v := obj.(type) {
	case core.Name:
		f.Encoding = string(v)
		f.simple = NewSimpleEncoding(f.Encoding, nil)
	case *core.Dict:
		if base, ok := v.GetName("BaseEncoding"); ok {
			f.Encoding = string(base)
		}
		diffsObj, err := res.Resolve(v.Get("Differences"))
		if err != nil {
			return fmt.Errorf("font %s: failed to resolve /Differences: %w", f.Name, err)
		}
		var diffs map[byte]string
		if arr, ok := diffsObj.(core.Array); ok {
			diffs = ParseDifferences(arr)
		}
		f.simple = NewSimpleEncoding(f.Encoding, diffs)
	case *core.Stream:
		f.Encoding = "embedded"
		if name, ok := v.Dict.GetName("CMapName"); ok {
			f.Encoding = string(name)
		}
	}
	return nil
}

func (f *Font) readToUnicode(dict *core.Dict, res Resolver) error {
	if !dict.Has("ToUnicode") {
		return nil
	}
	obj, err := res.Resolve(dict.Get("ToUnicode"))
	if err != nil {
		return fmt.Errorf("font %s: failed to resolve /ToUnicode: %w", f.Name, err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil
	}

	log := logging.Logger()
	data, err := res.Decode(stream)
	if err != nil {
		log.Debug("ignoring undecodable ToUnicode stream", "font", f.Name, "error", err)
		return nil
	}
	cm, err := ParseCMap(data, nil)
	if err != nil {
		log.Debug("ignoring unparsable ToUnicode cmap", "font", f.Name, "error", err)
		return nil
	}
	f.ToUnicode = cm
	return nil
}

func (f *Font) descendant(dict *core.Dict, res Resolver) (*core.Dict, error) {
	if !f.IsComposite() {
		return nil, nil
	}
	obj, err := res.Resolve(dict.Get("DescendantFonts"))
	if err != nil {
		return nil, fmt.Errorf("font %s: failed to resolve /DescendantFonts: %w", f.Name, err)
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) == 0 {
		return nil, nil
	}
	first, err := res.Resolve(arr[0])
	if err != nil {
		return nil, fmt.Errorf("font %s: failed to resolve descendant font: %w", f.Name, err)
	}
	d, _ := first.(*core.Dict)
	return d, nil
}

func (f *Font) readCIDSystemInfo(descendant *core.Dict, res Resolver) error {
	obj, err := res.Resolve(descendant.Get("CIDSystemInfo"))
	if err != nil {
		return fmt.Errorf("font %s: failed to resolve /CIDSystemInfo: %w", f.Name, err)
	}
	info, ok := obj.(*core.Dict)
	if !ok {
		return nil
	}
	if b, ok := info.GetBytes("Registry"); ok {
		f.Registry = string(b)
	}
	if b, ok := info.GetBytes("Ordering"); ok {
		f.Ordering = string(b)
	}
	return nil
}

func (f *Font) loadPredefined(cmaps *CMapStore) {
	log := logging.Logger()
	name, ok := predefinedCMaps[f.Registry+"-"+f.Ordering]
	if !ok {
		log.Debug("no predefined cmap for character collection", "font", f.Name, "registry", f.Registry, "ordering", f.Ordering)
		return
	}
	cm, err := cmaps.Load(name)
	if err != nil {
		log.Debug("predefined cmap unavailable", "font", f.Name, "cmap", name, "error", err)
		return
	}
	f.cids = cm
}

func (f *Font) descriptor(dict, descendant *core.Dict, res Resolver) (*core.Dict, error) {
	src := dict
	if !dict.Has("FontDescriptor") && descendant != nil {
		src = descendant
	}
	obj, err := res.Resolve(src.Get("FontDescriptor"))
	if err != nil {
		return nil, fmt.Errorf("font %s: failed to resolve /FontDescriptor: %w", f.Name, err)
	}
	d, _ := obj.(*core.Dict)
	return d, nil
}

func (f *Font) readMetrics(fd *core.Dict, res Resolver) {
	number := func(key string) (float64, bool) {
		obj, err := res.Resolve(fd.Get(key))
		if err != nil {
			return 0, false
		}
		n, ok := obj.(core.Number)
		return n.Float(), ok
	}
	if v, ok := number("Ascent"); ok {
		f.Ascent = v
	}
	if v, ok := number("Descent"); ok {
		f.Descent = v
	}
	if v, ok := number("CapHeight"); ok {
		f.CapHeight = v
	}

	obj, err := res.Resolve(fd.Get("FontBBox"))
	if err != nil {
		return
	}
	if arr, ok := obj.(core.Array); ok && len(arr) == 4 {
		for i := range f.FontBBox {
			if n, ok := arr.GetNumber(i); ok {
				f.FontBBox[i] = n.Float()
			}
		}
	}
}
