package font

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// NormalizeUnicode returns s in NFC.
func NormalizeUnicode(s string) string {
	return norm.NFC.String(s)
}

// UnifyIdeographs replaces CJK radicals (U+2E80..U+2FDF) with their
// equivalent unified ideographs where one exists, and normalizes the
// result to NFC.
func UnifyIdeographs(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= 0x2E80 && r <= 0x2FDF {
			sb.WriteString(norm.NFKC.String(string(r)))
			continue
		}
		sb.WriteRune(r)
	}
	return NormalizeUnicode(sb.String())
}

// DecodeTextString decodes a document text string: UTF-16 when it starts
// with a byte order mark, otherwise one character per byte.
func DecodeTextString(b []byte) string {
	if len(b) >= 2 && (b[0] == 0xFE && b[1] == 0xFF || b[0] == 0xFF && b[1] == 0xFE) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return string(b[3:])
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
