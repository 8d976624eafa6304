package font

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfstruct/core"
)

// fakeDoc resolves references from a map and returns stream bytes as is.
type fakeDoc map[core.Reference]core.Object

func (d fakeDoc) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.Reference)
	if !ok {
		return obj, nil
	}
	if ref.Number < 0 {
		return nil, errors.New("broken reference")
	}
	return d[ref], nil
}

func (d fakeDoc) Decode(s *core.Stream) ([]byte, error) {
	if s.Dict.Has("Filter") {
		return nil, core.ErrUnsupportedFilter
	}
	return s.Data, nil
}

func ref(n int) core.Reference {
	return core.Reference{Number: n}
}

func TestSimpleFontWinAnsi(t *testing.T) {
	dict := core.DictOf(
		"Type", core.Name("Font"),
		"Subtype", core.Name("Type1"),
		"BaseFont", core.Name("Helvetica"),
		"Encoding", core.Name("WinAnsiEncoding"),
	)
	f, err := New("F1", dict, fakeDoc{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "F1", f.Name)
	assert.Equal(t, "Type1", f.Subtype)
	assert.Equal(t, "Helvetica", f.BaseFont)
	assert.Equal(t, "WinAnsiEncoding", f.Encoding)
	assert.False(t, f.IsComposite())
	assert.Equal(t, "Café €5", f.Decode([]byte{'C', 'a', 'f', 0xE9, ' ', 0x80, '5'}))
}

func TestSimpleFontDifferencesThroughReference(t *testing.T) {
	doc := fakeDoc{
		ref(7): core.DictOf(
			"Type", core.Name("Encoding"),
			"Differences", ref(8),
		),
		ref(8): core.Array{core.Number(1), core.Name("A"), core.Name("B")},
	}
	dict := core.DictOf(
		"Subtype", core.Name("TrueType"),
		"Encoding", ref(7),
	)
	f, err := New("F2", dict, doc, nil)
	require.NoError(t, err)

	assert.Equal(t, map[byte]string{1: "A", 2: "B"}, f.Differences())
	assert.Equal(t, "ABc", f.Decode([]byte{1, 2, 'c'}))
}

func TestToUnicodeTakesPriority(t *testing.T) {
	doc := fakeDoc{
		ref(9): &core.Stream{Dict: core.NewDict(), Data: []byte("1 beginbfchar\n<01> <0058>\nendbfchar\n1 begincodespacerange\n<00> <FF>\nendcodespacerange\n")},
	}
	dict := core.DictOf(
		"Subtype", core.Name("Type1"),
		"Encoding", core.Name("WinAnsiEncoding"),
		"ToUnicode", ref(9),
	)
	f, err := New("F3", dict, doc, nil)
	require.NoError(t, err)
	require.NotNil(t, f.ToUnicode)

	assert.Equal(t, "X�", f.Decode([]byte{1, 2}))
}

func TestUndecodableToUnicodeIsIgnored(t *testing.T) {
	doc := fakeDoc{
		ref(9): &core.Stream{Dict: core.DictOf("Filter", core.Name("DCTDecode")), Data: []byte{1}},
	}
	dict := core.DictOf(
		"Subtype", core.Name("Type1"),
		"ToUnicode", ref(9),
	)
	f, err := New("F3", dict, doc, nil)
	require.NoError(t, err)
	assert.Nil(t, f.ToUnicode)
	assert.Equal(t, "ok", f.Decode([]byte("ok")))
}

func TestShiftJISComposite(t *testing.T) {
	dict := core.DictOf(
		"Subtype", core.Name("Type0"),
		"Encoding", core.Name("90ms-RKSJ-H"),
	)
	f, err := New("F4", dict, fakeDoc{}, nil)
	require.NoError(t, err)

	assert.True(t, f.IsComposite())
	assert.Equal(t, "日本A", f.Decode([]byte{0x93, 0xFA, 0x96, 0x7B, 'A'}))
}

func TestIdentityHWithPredefinedCMap(t *testing.T) {
	cmaps := NewCMapStore(fstest.MapFS{
		"UniJIS2004-UTF16-H": {Data: []byte(`/CMapName /UniJIS2004-UTF16-H def
1 begincidrange
<4E00> <4E01> 1200
endcidrange
1 begincidchar
<2F00> 1300
endcidchar
`)},
	})
	doc := fakeDoc{
		ref(20): core.DictOf(
			"Subtype", core.Name("CIDFontType0"),
			"CIDSystemInfo", core.DictOf(
				"Registry", core.String("Adobe"),
				"Ordering", core.String("Japan1"),
				"Supplement", core.Number(6),
			),
			"FontDescriptor", ref(21),
		),
		ref(21): core.DictOf(
			"Ascent", core.Number(880),
			"Descent", core.Number(-120),
			"FontBBox", core.Array{core.Number(-10), core.Number(-150), core.Number(1000), core.Number(900)},
		),
	}
	dict := core.DictOf(
		"Subtype", core.Name("Type0"),
		"BaseFont", core.Name("KozMinPr6N-Regular"),
		"Encoding", core.Name("Identity-H"),
		"DescendantFonts", core.Array{ref(20)},
	)

	f, err := New("F5", dict, doc, cmaps)
	require.NoError(t, err)

	assert.Equal(t, "Adobe", f.Registry)
	assert.Equal(t, "Japan1", f.Ordering)
	assert.Equal(t, 880.0, f.Ascent)
	assert.Equal(t, -120.0, f.Descent)
	assert.Equal(t, 733.0, f.CapHeight)
	assert.Equal(t, [4]float64{-10, -150, 1000, 900}, f.FontBBox)
	assert.False(t, f.IsVertical())

	// CID 1300 maps to the Kangxi radical, which is unified to U+4E00.
	got := f.Decode([]byte{0x04, 0xB0, 0x04, 0xB1, 0x05, 0x14, 0x00, 0x01})
	assert.Equal(t, "一丁一�", got)
}

func TestIdentityHWithoutCMap(t *testing.T) {
	dict := core.DictOf(
		"Subtype", core.Name("Type0"),
		"Encoding", core.Name("Identity-V"),
	)
	f, err := New("F6", dict, fakeDoc{}, nil)
	require.NoError(t, err)

	assert.True(t, f.IsVertical())
	assert.Equal(t, "��", f.Decode([]byte{0, 1, 0, 2}))
}

func TestFontDefaults(t *testing.T) {
	f, err := New("F7", nil, fakeDoc{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, f.Ascent)
	assert.Equal(t, 733.0, f.CapHeight)
	assert.Equal(t, 0.0, f.Descent)
	assert.Equal(t, [4]float64{0, 0, 1000, 1000}, f.FontBBox)
	assert.Equal(t, "abc", f.Decode([]byte("abc")))
}

func TestFontResolutionErrors(t *testing.T) {
	broken := core.Reference{Number: -1}
	tests := []struct {
		name string
		key  string
	}{
		{"encoding", "Encoding"},
		{"to unicode", "ToUnicode"},
		{"descendants", "DescendantFonts"},
		{"descriptor", "FontDescriptor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := core.DictOf("Subtype", core.Name("Type0"), tt.key, broken)
			_, err := New("F8", dict, fakeDoc{}, nil)
			assert.Error(t, err)
		})
	}
}
