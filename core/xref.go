package core

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/tsawler/pdfstruct/logging"
)

// XRefEntryType classifies a cross-reference entry
type XRefEntryType int

const (
	XRefFree       XRefEntryType = iota // type 0 / "f"
	XRefInUse                           // type 1 / "n": object at a byte offset
	XRefCompressed                      // type 2: object inside an object stream
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefFree:
		return "free"
	case XRefInUse:
		return "in-use"
	case XRefCompressed:
		return "compressed"
	}
	return "unknown"
}

// XRefEntry locates one object number
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64 // XRefInUse: byte offset of "N G obj"
	Generation int

	StreamNumber int // XRefCompressed: object number of the containing stream
	Index        int // XRefCompressed: index within that stream
}

// XRefTable is the merged cross-reference index of a document. Entries from
// newer sections shadow older ones.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer *Dict // trailer of the newest section
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]XRefEntry)}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(num int) (XRefEntry, bool) {
	e, ok := x.Entries[num]
	return e, ok
}

// Add records entry for num unless num is already present, and reports
// whether it was added.
func (x *XRefTable) Add(num int, entry XRefEntry) bool {
	if _, ok := x.Entries[num]; ok {
		return false
	}
	x.Entries[num] = entry
	return true
}

// Len returns the number of entries in the table
func (x *XRefTable) Len() int {
	return len(x.Entries)
}

// Numbers returns every object number in ascending order
func (x *XRefTable) Numbers() []int {
	nums := make([]int, 0, len(x.Entries))
	for n := range x.Entries {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// startXRefWindow is how far from the end of the file startxref is searched for
const startXRefWindow = 1024

// XRefParser reads the cross-reference chain of a file.
type XRefParser struct {
	r        io.ReaderAt
	size     int64
	resolver ReferenceResolver
	decoder  Decoder
	log      *slog.Logger
}

// NewXRefParser creates a parser over the size bytes of r.
func NewXRefParser(r io.ReaderAt, size int64) *XRefParser {
	return &XRefParser{r: r, size: size}
}

// SetReferenceResolver sets the resolver used while reading xref streams.
func (x *XRefParser) SetReferenceResolver(resolver ReferenceResolver) {
	x.resolver = resolver
	x.decoder.Resolver = resolver
}

// SetLogger sets the logger for this parser. The logging package logger is
// used when l is nil.
func (x *XRefParser) SetLogger(l *slog.Logger) {
	x.log = l
}

func (x *XRefParser) logger() *slog.Logger {
	if x.log != nil {
		return x.log
	}
	return logging.Logger()
}

// FindStartXRef returns the offset recorded after the last "startxref" in
// the final kilobyte of the file.
func (x *XRefParser) FindStartXRef() (int64, error) {
	n := int64(startXRefWindow)
	if x.size < n {
		n = x.size
	}
	buf := make([]byte, n)
	read, err := x.r.ReadAt(buf, x.size-n)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading file tail: %w", err)
	}
	buf = buf[:read]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXRef
	}

	rest := bytes.TrimLeft(buf[idx+len("startxref"):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	offset, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, NewStructuralError(fmt.Sprintf("invalid startxref offset %q", rest[:end]))
	}
	if offset >= x.size {
		return 0, NewStructuralError(fmt.Sprintf("startxref offset %d beyond end of file (%d bytes)", offset, x.size))
	}
	return offset, nil
}

// Parse locates startxref and reads the whole chain of sections, following
// /XRefStm and /Prev.
func (x *XRefParser) Parse() (*XRefTable, error) {
	start, err := x.FindStartXRef()
	if err != nil {
		return nil, err
	}
	return x.ParseChain(start)
}

// ParseChain reads the section at offset and every older section reachable
// through /Prev. Each object number keeps the first entry seen, so the
// newest revision wins. The first trailer becomes the document trailer.
func (x *XRefParser) ParseChain(offset int64) (*XRefTable, error) {
	table := NewXRefTable()
	visited := make(map[int64]bool)
	log := x.logger()

	for {
		if visited[offset] {
			return nil, NewStructuralError(fmt.Sprintf("cross-reference chain loops back to offset %d", offset))
		}
		visited[offset] = true

		entries, trailer, err := x.parseSection(offset)
		if err != nil {
			return nil, err
		}
		if table.Trailer == nil {
			table.Trailer = trailer
		}

		// A hybrid file's xref stream fills in the same revision. Readers
		// that ignore /XRefStm see its objects as free in the classic table,
		// so the stream replaces free entries and fills absent ones.
		if stm, ok := trailer.GetInt("XRefStm"); ok && !visited[int64(stm)] {
			visited[int64(stm)] = true
			extra, _, err := x.parseSection(int64(stm))
			if err != nil {
				return nil, fmt.Errorf("supplementary xref stream at %d: %w", stm, err)
			}
			for num, e := range extra {
				if cur, ok := entries[num]; !ok || cur.Type == XRefFree {
					entries[num] = e
				}
			}
		}

		added := 0
		for num, e := range entries {
			if table.Add(num, e) {
				added++
			}
		}
		log.Debug("read cross-reference section", "offset", offset, "entries", len(entries), "added", added)

		prev, ok := trailer.GetNumber("Prev")
		if !ok {
			break
		}
		offset = prev.Int64()
	}

	return table, nil
}

// parseSection reads a classic "xref" table or an xref stream at offset.
func (x *XRefParser) parseSection(offset int64) (map[int]XRefEntry, *Dict, error) {
	if offset < 0 || offset >= x.size {
		return nil, nil, NewStructuralError(fmt.Sprintf("cross-reference offset %d out of range", offset))
	}

	p := NewParser(io.NewSectionReader(x.r, 0, x.size))
	p.SetReferenceResolver(x.resolver)
	if err := p.Seek(offset); err != nil {
		return nil, nil, err
	}

	tok, err := p.Lexer().NextToken()
	if err != nil {
		return nil, nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		return x.parseTable(p)
	}
	p.Lexer().Unread(tok)
	return x.parseStreamSection(p, offset)
}

// parseTable reads subsections of "start count" followed by count
// "offset generation n|f" rows, up to the trailer keyword.
func (x *XRefParser) parseTable(p *Parser) (map[int]XRefEntry, *Dict, error) {
	lex := p.Lexer()
	entries := make(map[int]XRefEntry)

	readInt := func(construct string) (int64, error) {
		tok, err := lex.NextToken()
		if err != nil {
			return 0, err
		}
		if !isInteger(tok) {
			return 0, &ParseError{Construct: construct, Offset: tok.Pos, Err: fmt.Errorf("expected integer, found %s", tok)}
		}
		return strconv.ParseInt(string(tok.Value), 10, 64)
	}

	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, nil, err
		}
		if tok.Type == TokenEOF {
			return nil, nil, ErrNoTrailer
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		lex.Unread(tok)

		start, err := readInt("xref subsection")
		if err != nil {
			return nil, nil, err
		}
		count, err := readInt("xref subsection")
		if err != nil {
			return nil, nil, err
		}

		for i := int64(0); i < count; i++ {
			off, err := readInt("xref entry")
			if err != nil {
				return nil, nil, err
			}
			gen, err := readInt("xref entry")
			if err != nil {
				return nil, nil, err
			}
			kind, err := lex.NextToken()
			if err != nil {
				return nil, nil, err
			}

			num := int(start + i)
			switch string(kind.Value) {
			case "n":
				entries[num] = XRefEntry{Type: XRefInUse, Offset: off, Generation: int(gen)}
			case "f":
				entries[num] = XRefEntry{Type: XRefFree, Generation: int(gen)}
			default:
				return nil, nil, &ParseError{Construct: "xref entry", Offset: kind.Pos, Err: fmt.Errorf("entry type %q", kind.Value)}
			}
		}
	}

	obj, err := p.ParseObject()
	if err == io.EOF {
		return nil, nil, ErrNoTrailer
	}
	if err != nil {
		return nil, nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(*Dict)
	if !ok {
		return nil, nil, NewStructuralError(fmt.Sprintf("trailer is %s, want a dictionary", obj.Type()))
	}
	return entries, trailer, nil
}

// parseStreamSection reads a /Type /XRef stream. Its dictionary doubles as
// the trailer.
func (x *XRefParser) parseStreamSection(p *Parser, offset int64) (map[int]XRefEntry, *Dict, error) {
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, nil, fmt.Errorf("xref stream at %d: %w", offset, err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, nil, NewStructuralError(fmt.Sprintf("object at xref offset %d is %s, not a stream", offset, ind.Object.Type()))
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, nil, NewStructuralError(fmt.Sprintf("stream at xref offset %d has /Type %s", offset, objectString(stream.Dict.Get("Type"))))
	}

	data, err := x.decoder.Decode(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding xref stream: %w", err)
	}
	entries, err := parseXRefStreamData(stream.Dict, data)
	if err != nil {
		return nil, nil, err
	}
	return entries, stream.Dict, nil
}

// parseXRefStreamData splits decoded xref stream rows using /W and /Index.
// Rows are scanned twice: first for free and in-use entries, then for
// compressed ones.
func parseXRefStreamData(dict *Dict, data []byte) (map[int]XRefEntry, error) {
	w, ok := dict.GetArray("W")
	if !ok || w.Len() < 3 {
		return nil, NewStructuralError("xref stream /W must list three widths")
	}
	var widths [3]int
	rowLen := 0
	for i := range widths {
		n, ok := w.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return nil, NewStructuralError(fmt.Sprintf("xref stream /W[%d] is invalid", i))
		}
		widths[i] = n
		rowLen += n
	}
	if rowLen == 0 {
		return nil, NewStructuralError("xref stream /W is all zero")
	}

	var index []int
	if arr, ok := dict.GetArray("Index"); ok {
		if arr.Len()%2 != 0 {
			return nil, NewStructuralError("xref stream /Index has an odd length")
		}
		for i := 0; i < arr.Len(); i++ {
			n, ok := arr.GetInt(i)
			if !ok {
				return nil, NewStructuralError("xref stream /Index holds a non-number")
			}
			index = append(index, n)
		}
	} else {
		size, ok := dict.GetInt("Size")
		if !ok {
			return nil, NewStructuralError("xref stream has neither /Index nor /Size")
		}
		index = []int{0, size}
	}

	type row struct {
		num    int
		fields [3]int64
	}
	var rows []row
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(data) {
				return nil, NewStructuralError(fmt.Sprintf("xref stream data ends after %d rows", len(rows)))
			}
			var r row
			r.num = start + j
			for f := 0; f < 3; f++ {
				r.fields[f] = readField(data[pos : pos+widths[f]])
				pos += widths[f]
			}
			if widths[0] == 0 {
				r.fields[0] = 1
			}
			rows = append(rows, r)
		}
	}

	entries := make(map[int]XRefEntry, len(rows))
	for _, r := range rows {
		switch r.fields[0] {
		case 0:
			entries[r.num] = XRefEntry{Type: XRefFree, Generation: int(r.fields[2])}
		case 1:
			entries[r.num] = XRefEntry{Type: XRefInUse, Offset: r.fields[1], Generation: int(r.fields[2])}
		case 2:
		default:
			logging.Logger().Debug("ignoring xref stream entry of unknown type", "object", r.num, "type", r.fields[0])
		}
	}
	for _, r := range rows {
		if r.fields[0] != 2 {
			continue
		}
		if _, ok := entries[r.num]; !ok {
			entries[r.num] = XRefEntry{Type: XRefCompressed, StreamNumber: int(r.fields[1]), Index: int(r.fields[2])}
		}
	}
	return entries, nil
}

// readField decodes a big-endian unsigned field; a zero-width field is 0.
func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
