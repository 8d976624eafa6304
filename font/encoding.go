package font

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/pdfstruct/core"
)

// SimpleEncoding decodes single-byte codes. Codes named in Differences go
// through the glyph-name table; the rest use the base encoding, or pass
// through as their byte value when there is none.
type SimpleEncoding struct {
	Base        string
	Differences map[byte]string

	table *charmap.Charmap
}

// NewSimpleEncoding returns the encoding for base (WinAnsiEncoding,
// MacRomanEncoding, StandardEncoding, ...) with the given overrides.
func NewSimpleEncoding(base string, differences map[byte]string) *SimpleEncoding {
	e := &SimpleEncoding{Base: base, Differences: differences}
	switch base {
	case "WinAnsiEncoding":
		e.table = charmap.Windows1252
	case "MacRomanEncoding":
		e.table = charmap.Macintosh
	}
	return e
}

// DecodeByte returns the text for one code.
func (e *SimpleEncoding) DecodeByte(b byte) string {
	if name, ok := e.Differences[b]; ok {
		if s, ok := GlyphToUnicode(name); ok {
			return s
		}
		return string(ReplacementChar)
	}
	if e.table != nil {
		return string(e.table.DecodeByte(b))
	}
	return string(rune(b))
}

// Decode returns the text for a string of codes.
func (e *SimpleEncoding) Decode(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		sb.WriteString(e.DecodeByte(b))
	}
	return sb.String()
}

// ParseDifferences reads a /Differences array: a Number sets the current
// code and each Name is assigned to it before it advances.
func ParseDifferences(arr core.Array) map[byte]string {
	diffs := make(map[byte]string)
	code := 255
	for _, item := range arr {
		switch v := item.(type) {
		case core.Number:
			code = v.Int()
		case core.Name:
			if code >= 0 && code <= 255 {
				diffs[byte(code)] = string(v)
			}
			code++
		}
	}
	return diffs
}

// GlyphToUnicode maps a glyph name to text. Names of the form uniXXXX
// (one or more 4-digit groups) and uXXXX to uXXXXXX are decoded
// numerically; suffixes after a period are ignored.
func GlyphToUnicode(name string) (string, bool) {
	if s, ok := glyphNames[name]; ok {
		return s, true
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		return GlyphToUnicode(name[:i])
	}

	if hexs, ok := strings.CutPrefix(name, "uni"); ok && len(hexs) >= 4 && len(hexs)%4 == 0 {
		var sb strings.Builder
		for i := 0; i < len(hexs); i += 4 {
			v, err := strconv.ParseUint(hexs[i:i+4], 16, 16)
			if err != nil {
				return "", false
			}
			sb.WriteRune(rune(v))
		}
		return sb.String(), true
	}
	if hexs, ok := strings.CutPrefix(name, "u"); ok && len(hexs) >= 4 && len(hexs) <= 6 {
		v, err := strconv.ParseUint(hexs, 16, 32)
		if err != nil || v > 0x10FFFF {
			return "", false
		}
		return string(rune(v)), true
	}
	return "", false
}

var glyphNames = map[string]string{
	"space": " ", "exclam": "!", "quotedbl": "\"", "numbersign": "#",
	"dollar": "$", "percent": "%", "ampersand": "&", "quotesingle": "'",
	"parenleft": "(", "parenright": ")", "asterisk": "*", "plus": "+",
	"comma": ",", "hyphen": "-", "period": ".", "slash": "/",
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"colon": ":", "semicolon": ";", "less": "<", "equal": "=",
	"greater": ">", "question": "?", "at": "@",
	"bracketleft": "[", "backslash": "\\", "bracketright": "]",
	"asciicircum": "^", "underscore": "_", "grave": "`",
	"braceleft": "{", "bar": "|", "braceright": "}", "asciitilde": "~",

	"quoteleft": "‘", "quoteright": "’",
	"quotedblleft": "“", "quotedblright": "”",
	"quotesinglbase": "‚", "quotedblbase": "„",
	"guilsinglleft": "‹", "guilsinglright": "›",
	"guillemotleft": "«", "guillemotright": "»",
	"endash": "–", "emdash": "—", "minus": "−",
	"bullet": "•", "ellipsis": "…", "periodcentered": "·",
	"dagger": "†", "daggerdbl": "‡", "perthousand": "‰",
	"trademark": "™", "copyright": "©", "registered": "®",
	"Euro": "€", "cent": "¢", "sterling": "£", "yen": "¥",
	"currency": "¤", "florin": "ƒ", "section": "§",
	"paragraph": "¶", "degree": "°", "plusminus": "±",
	"multiply": "×", "divide": "÷", "logicalnot": "¬",
	"mu": "µ", "ordfeminine": "ª", "ordmasculine": "º",
	"onehalf": "½", "onequarter": "¼", "threequarters": "¾",
	"onesuperior": "¹", "twosuperior": "²", "threesuperior": "³",
	"exclamdown": "¡", "questiondown": "¿", "brokenbar": "¦",
	"dieresis": "¨", "macron": "¯", "acute": "´",
	"cedilla": "¸", "circumflex": "ˆ", "tilde": "˜",
	"caron": "ˇ", "breve": "˘", "dotaccent": "˙",
	"ring": "˚", "ogonek": "˛", "hungarumlaut": "˝",
	"fraction": "⁄", "nbspace": " ",

	"fi": "fi", "fl": "fl", "ff": "ff", "ffi": "ffi", "ffl": "ffl",
	"f_i": "fi", "f_l": "fl", "f_f": "ff", "f_f_i": "ffi", "f_f_l": "ffl",
	"ft": "ft", "st": "st",

	"AE": "Æ", "ae": "æ", "OE": "Œ", "oe": "œ",
	"Oslash": "Ø", "oslash": "ø", "germandbls": "ß",
	"Lslash": "Ł", "lslash": "ł", "dotlessi": "ı",
	"Eth": "Ð", "eth": "ð", "Thorn": "Þ", "thorn": "þ",
	"Scaron": "Š", "scaron": "š", "Zcaron": "Ž", "zcaron": "ž",
	"Ydieresis": "Ÿ", "ydieresis": "ÿ",

	"Agrave": "À", "Aacute": "Á", "Acircumflex": "Â",
	"Atilde": "Ã", "Adieresis": "Ä", "Aring": "Å",
	"Ccedilla": "Ç", "Egrave": "È", "Eacute": "É",
	"Ecircumflex": "Ê", "Edieresis": "Ë", "Igrave": "Ì",
	"Iacute": "Í", "Icircumflex": "Î", "Idieresis": "Ï",
	"Ntilde": "Ñ", "Ograve": "Ò", "Oacute": "Ó",
	"Ocircumflex": "Ô", "Otilde": "Õ", "Odieresis": "Ö",
	"Ugrave": "Ù", "Uacute": "Ú", "Ucircumflex": "Û",
	"Udieresis": "Ü", "Yacute": "Ý",
	"agrave": "à", "aacute": "á", "acircumflex": "â",
	"atilde": "ã", "adieresis": "ä", "aring": "å",
	"ccedilla": "ç", "egrave": "è", "eacute": "é",
	"ecircumflex": "ê", "edieresis": "ë", "igrave": "ì",
	"iacute": "í", "icircumflex": "î", "idieresis": "ï",
	"ntilde": "ñ", "ograve": "ò", "oacute": "ó",
	"ocircumflex": "ô", "otilde": "õ", "odieresis": "ö",
	"ugrave": "ù", "uacute": "ú", "ucircumflex": "û",
	"udieresis": "ü", "yacute": "ý",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		glyphNames[string(c)] = string(c)
		glyphNames[string(c-'a'+'A')] = string(c - 'a' + 'A')
	}
}
