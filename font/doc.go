// Package font turns the codes of shown strings into text.
//
// # CMaps
//
// [ParseCMap] runs the object parser over a CMap program and records its
// code-space ranges and its bfchar, bfrange, cidchar and cidrange blocks.
// [CMap.Decode] splits bytes into codes by trying lengths longest first
// against the code-space ranges; [CMap.DecodeUnits] reads fixed-width
// codes. A code without a mapping decodes to U+FFFD.
//
// Predefined CMaps such as UniJIS2004-UTF16-H are not embedded. A
// [CMapStore] loads them by name from a file system and follows usecmap.
//
// # Fonts
//
// [New] prepares a font dictionary:
//
//	f, err := font.New("F1", dict, doc, font.NewCMapStore(os.DirFS("cmaps")))
//	text := f.Decode(shown)
//
// A /ToUnicode CMap always wins. Otherwise 90ms-RKSJ-H strings decode as
// Shift-JIS, Adobe-Japan1 composite fonts go through the predefined CMap,
// and simple fonts apply /Differences and the glyph-name table over their
// base encoding.
package font
