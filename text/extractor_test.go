package text

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfstruct/contentstream"
	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
)

// passthrough resolves nothing and returns stream data undecoded.
type passthrough struct{}

func (passthrough) Resolve(obj core.Object) (core.Object, error) { return obj, nil }
func (passthrough) Decode(s *core.Stream) ([]byte, error)       { return s.Data, nil }

const toUnicode = `/CIDInit /ProcSet findresource begin
begincmap
1 begincodespacerange <0000> <FFFF> endcodespacerange
2 beginbfchar
<0001> <65E5>
<0002> <672C>
endbfchar
endcmap`

func testFonts(t *testing.T) map[string]*font.Font {
	t.Helper()
	winAnsi, err := font.New("F1", core.DictOf(
		"Type", core.Name("Font"),
		"Subtype", core.Name("Type1"),
		"BaseFont", core.Name("Helvetica"),
		"Encoding", core.Name("WinAnsiEncoding"),
	), passthrough{}, nil)
	require.NoError(t, err)

	composite, err := font.New("F2", core.DictOf(
		"Type", core.Name("Font"),
		"Subtype", core.Name("Type0"),
		"Encoding", core.Name("Identity-H"),
		"ToUnicode", &core.Stream{Dict: core.NewDict(), Data: []byte(toUnicode)},
	), passthrough{}, nil)
	require.NoError(t, err)

	return map[string]*font.Font{"F1": winAnsi, "F2": composite}
}

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestExtractSimpleText(t *testing.T) {
	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte("BT /F1 12 Tf 72 720 Td (Hello) Tj ET"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, Line{Text: "Hello", FontName: "F1", Direction: LTR}, lines[0])
}

func TestExtractWinAnsiHighBytes(t *testing.T) {
	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte("BT /F1 12 Tf (caf\\351 \\200) Tj ET"))
	require.NoError(t, err)
	assert.Equal(t, []string{"café €"}, texts(lines))
}

func TestExtractCompositeFont(t *testing.T) {
	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte("BT /F2 10 Tf <00010002> Tj ET"))
	require.NoError(t, err)
	assert.Equal(t, []string{"日本"}, texts(lines))
	assert.Equal(t, "F2", lines[0].FontName)
}

func TestExtractFontSwitchWithinLine(t *testing.T) {
	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte("BT /F1 12 Tf (Tokyo: ) Tj /F2 12 Tf <00010002> Tj ET"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Tokyo: 日本", lines[0].Text)
	assert.Equal(t, "F1", lines[0].FontName)
}

func TestExtractTJSpacing(t *testing.T) {
	tests := []struct {
		name string
		ops  string
		want string
	}{
		{"kerning only", "[(He) -20 (llo)] TJ", "Hello"},
		{"word gap", "[(Hello) -300 (World)] TJ", "Hello World"},
		{"positive displacement", "[(A) 400 (B)] TJ", "AB"},
		{"gap after explicit space", "[(Hello ) -300 (World)] TJ", "Hello World"},
		{"leading gap", "[-500 (A)] TJ", "A"},
		{"hex strings", "[<4869> -250 <21>] TJ", "Hi !"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte("BT /F1 12 Tf " + tt.ops + " ET"))
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, texts(lines))
		})
	}
}

func TestExtractLineBreaks(t *testing.T) {
	content := `BT /F1 12 Tf 14 TL
72 700 Td (A) Tj 10 0 Td (B) Tj
0 -14 Td (C) Tj
T* (D) Tj
(E) '
1 2 (F) "
5 -14 TD (G) Tj
ET
BT (H) Tj ET`

	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "C", "D", "E", "F", "G", "H"}, texts(lines))
}

func TestExtractUnknownFontUsesRawBytes(t *testing.T) {
	lines, err := NewExtractor(nil).ExtractFromBytes([]byte("BT /F9 10 Tf (abc) Tj ET"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0].Text)
	assert.Equal(t, "F9", lines[0].FontName)
}

func TestExtractIgnoresNonTextOperators(t *testing.T) {
	content := "q 1 0 0 1 0 0 cm 0 0 m 10 10 l S BI /W 1 /H 1 ID \x00 EI Q BT /F1 1 Tf (x) Tj ET"
	lines, err := NewExtractor(testFonts(t)).ExtractFromBytes([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, texts(lines))
}

func TestExtractMalformedOperandsSkipped(t *testing.T) {
	ops := []contentstream.Operation{
		{Operator: "Tf", Operands: []core.Object{core.Number(12)}},
		{Operator: "Tj", Operands: []core.Object{core.Number(1)}},
		{Operator: "TJ", Operands: []core.Object{core.String("not an array")}},
		{Operator: "Td", Operands: []core.Object{core.Number(0)}},
		{Operator: "Tj", Operands: []core.Object{core.String("ok")}},
	}
	lines := NewExtractor(nil).Extract(ops)
	assert.Equal(t, []string{"ok"}, texts(lines))
}

func TestExtractPartialStream(t *testing.T) {
	lines, err := NewExtractor(nil).ExtractFromBytes([]byte("BT (A) Tj ET BT (B) Tj (unterminated"))
	assert.Error(t, err)
	assert.Equal(t, []string{"A", "B"}, texts(lines))
}

func TestExtractorReuse(t *testing.T) {
	ex := NewExtractor(nil)
	first, err := ex.ExtractFromBytes([]byte("BT (one) Tj ET"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, texts(first))

	second, err := ex.ExtractFromBytes([]byte("(two) Tj"))
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, texts(second))
	assert.Empty(t, second[0].FontName)
}

func TestExtractEmpty(t *testing.T) {
	lines, err := NewExtractor(nil).ExtractFromBytes(nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, "", Join(lines))
}

type fakePage struct {
	fonts    map[string]*font.Font
	fontsErr error
	data     []byte
	dataErr  error
}

func (p fakePage) Fonts() (map[string]*font.Font, error) { return p.fonts, p.fontsErr }
func (p fakePage) ContentData() ([]byte, error)          { return p.data, p.dataErr }

func TestExtractPage(t *testing.T) {
	page := fakePage{
		fonts: testFonts(t),
		data:  []byte("BT /F1 12 Tf (Title) Tj 0 -20 Td /F2 12 Tf <0001> Tj ET"),
	}
	got, err := ExtractPage(page)
	require.NoError(t, err)
	assert.Equal(t, "Title\n日", got)
}

func TestExtractPageKeepsTextBeforeSyntaxError(t *testing.T) {
	got, err := ExtractPage(fakePage{data: []byte("BT (kept) Tj ET <zz")})
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestExtractPageErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := ExtractPage(fakePage{fontsErr: boom})
	assert.ErrorIs(t, err, boom)

	_, err = ExtractPage(fakePage{dataErr: boom})
	assert.ErrorIs(t, err, boom)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a\nb", Join([]Line{{Text: "a"}, {Text: "b"}}))
}
