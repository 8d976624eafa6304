package font

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsawler/pdfstruct/core"
)

func TestWinAnsiEncoding(t *testing.T) {
	enc := NewSimpleEncoding("WinAnsiEncoding", nil)

	tests := []struct {
		name  string
		input byte
		want  string
	}{
		{"space", 0x20, " "},
		{"uppercase A", 0x41, "A"},
		{"euro sign", 0x80, "€"},
		{"left single quote", 0x91, "‘"},
		{"right single quote", 0x92, "’"},
		{"e acute", 0xE9, "é"},
		{"A grave", 0xC0, "À"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, enc.DecodeByte(tt.input))
		})
	}
}

func TestMacRomanEncoding(t *testing.T) {
	enc := NewSimpleEncoding("MacRomanEncoding", nil)

	assert.Equal(t, "A", enc.DecodeByte(0x41))
	assert.Equal(t, "Ä", enc.DecodeByte(0x80))
	assert.Equal(t, "é", enc.DecodeByte(0x8E))
	assert.Equal(t, "©", enc.DecodeByte(0xA9))
}

func TestUnknownBaseEncodingPassesBytesThrough(t *testing.T) {
	enc := NewSimpleEncoding("StandardEncoding", nil)
	assert.Equal(t, "Hié", enc.Decode([]byte{'H', 'i', 0xE9}))
}

func TestParseDifferences(t *testing.T) {
	arr := core.Array{
		core.Number(39), core.Name("quoteright"),
		core.Number(96), core.Name("quoteleft"), core.Name("a"),
		core.Number(300), core.Name("ignored"),
	}
	diffs := ParseDifferences(arr)

	assert.Equal(t, map[byte]string{
		39: "quoteright",
		96: "quoteleft",
		97: "a",
	}, diffs)
}

func TestParseDifferencesLeadingName(t *testing.T) {
	diffs := ParseDifferences(core.Array{core.Name("bullet"), core.Name("dropped")})
	assert.Equal(t, map[byte]string{255: "bullet"}, diffs)
}

func TestDifferencesOverrideBase(t *testing.T) {
	enc := NewSimpleEncoding("WinAnsiEncoding", map[byte]string{
		0x27: "quoteright",
		0x60: "quoteleft",
		0x01: "fi",
		0x02: "nosuchglyph",
	})

	got := enc.Decode([]byte{0x60, 'o', 'k', 0x27, ' ', 0x01, 'n', 'e', 0x02})
	assert.Equal(t, "‘ok’ fine�", got)
}

func TestGlyphToUnicode(t *testing.T) {
	tests := []struct {
		glyph string
		want  string
		ok    bool
	}{
		{"space", " ", true},
		{"A", "A", true},
		{"z", "z", true},
		{"Euro", "€", true},
		{"emdash", "—", true},
		{"ffl", "ffl", true},
		{"Ntilde", "Ñ", true},
		{"uni3042", "あ", true},
		{"uni00410042", "AB", true},
		{"u1F600", "😀", true},
		{"a.sc", "a", true},
		{"uniZZZZ", "", false},
		{"u110000", "", false},
		{"g123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.glyph, func(t *testing.T) {
			got, ok := GlyphToUnicode(tt.glyph)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
