package text

import (
	"fmt"
	"strings"

	"github.com/tsawler/pdfstruct/contentstream"
	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
	"github.com/tsawler/pdfstruct/logging"
)

// spaceAdjustment is the TJ displacement, in thousandths of text space,
// at or beyond which a word gap is assumed.
const spaceAdjustment = 250

// Line is one line of extracted text.
type Line struct {
	Text      string
	FontName  string    // Resource name of the font active at the line start
	Direction Direction // Dominant direction of Text
}

// Page is the part of a page that text extraction needs.
type Page interface {
	Fonts() (map[string]*font.Font, error)
	ContentData() ([]byte, error)
}

// Extractor turns show-text operations into lines of text using the fonts
// of a resource dictionary.
type Extractor struct {
	fonts map[string]*font.Font

	current  *font.Font
	fontName string

	buf      strings.Builder
	lineFont string
	lines    []Line
}

// NewExtractor creates an extractor for the given fonts, keyed by resource
// name without the leading slash.
func NewExtractor(fonts map[string]*font.Font) *Extractor {
	if fonts == nil {
		fonts = make(map[string]*font.Font)
	}
	return &Extractor{fonts: fonts}
}

// ExtractPage returns the text of page with one line per output line.
func ExtractPage(page Page) (string, error) {
	fonts, err := page.Fonts()
	if err != nil {
		return "", fmt.Errorf("load page fonts: %w", err)
	}
	data, err := page.ContentData()
	if err != nil {
		return "", fmt.Errorf("load page content: %w", err)
	}

	lines, err := NewExtractor(fonts).ExtractFromBytes(data)
	if err != nil {
		// Keep what was shown before the damaged part of the stream.
		logging.Logger().Debug("content stream truncated", "error", err, "lines", len(lines))
	}
	return Join(lines), nil
}

// Join concatenates the text of lines separated by newlines.
func Join(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// ExtractFromBytes parses a decoded content stream and extracts its lines.
// On a parse error the lines shown before it are returned with the error.
func (e *Extractor) ExtractFromBytes(data []byte) ([]Line, error) {
	ops, err := contentstream.Parse(data)
	lines := e.Extract(ops)
	if err != nil {
		return lines, fmt.Errorf("parse content stream: %w", err)
	}
	return lines, nil
}

// Extract processes operations and returns the lines they show. The
// extractor is reset first so it can be reused.
func (e *Extractor) Extract(ops []contentstream.Operation) []Line {
	e.reset()
	for _, op := range ops {
		e.process(op)
	}
	e.breakLine()
	return e.lines
}

func (e *Extractor) reset() {
	e.current = nil
	e.fontName = ""
	e.buf.Reset()
	e.lineFont = ""
	e.lines = nil
}

func (e *Extractor) process(op contentstream.Operation) {
	switch op.Operator {
	case "Tf":
		if len(op.Operands) == 2 {
			if name, ok := op.Operands[0].(core.Name); ok {
				e.setFont(string(name))
			}
		}
	case "Td", "TD":
		if len(op.Operands) == 2 {
			if ty, ok := op.Operands[1].(core.Number); ok && ty != 0 {
				e.breakLine()
			}
		}
	case "T*", "ET":
		e.breakLine()
	case "Tj":
		if len(op.Operands) == 1 {
			e.show(op.Operands[0])
		}
	case "'":
		e.breakLine()
		if len(op.Operands) == 1 {
			e.show(op.Operands[0])
		}
	case "\"":
		e.breakLine()
		if len(op.Operands) == 3 {
			e.show(op.Operands[2])
		}
	case "TJ":
		if len(op.Operands) == 1 {
			if arr, ok := op.Operands[0].(core.Array); ok {
				e.showArray(arr)
			}
		}
	}
}

func (e *Extractor) setFont(name string) {
	e.fontName = name
	e.current = e.fonts[name]
	if e.current == nil {
		logging.Logger().Debug("font not in resources", "font", name)
	}
}

func (e *Extractor) show(obj core.Object) {
	data, ok := core.Bytes(obj)
	if !ok {
		return
	}
	if e.buf.Len() == 0 {
		e.lineFont = e.fontName
	}
	e.buf.WriteString(e.decode(data))
}

// showArray shows the strings of a TJ array. A large negative displacement
// between strings reads as a word gap.
func (e *Extractor) showArray(arr core.Array) {
	for _, item := range arr {
		switch v := item.(type) {
		case core.Number:
			if -v >= spaceAdjustment && e.buf.Len() > 0 && !strings.HasSuffix(e.buf.String(), " ") {
				e.buf.WriteByte(' ')
			}
		default:
			e.show(v)
		}
	}
}

// decode maps shown bytes to text through the current font. Without a
// font each byte is taken as its own code point.
func (e *Extractor) decode(data []byte) string {
	if e.current != nil {
		return e.current.Decode(data)
	}
	return font.NewSimpleEncoding("", nil).Decode(data)
}

func (e *Extractor) breakLine() {
	if e.buf.Len() == 0 {
		return
	}
	s := e.buf.String()
	e.lines = append(e.lines, Line{
		Text:      s,
		FontName:  e.lineFont,
		Direction: DetectDirection(s),
	})
	e.buf.Reset()
}
