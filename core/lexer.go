package core

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF        TokenType = iota
	TokenNumber               // 123, -4.5, .5
	TokenString               // (hello)
	TokenHexString            // <48656C6C6F>
	TokenName                 // /Type
	TokenArrayStart           // [
	TokenArrayEnd             // ]
	TokenDictStart            // <<
	TokenDictEnd              // >>
	TokenKeyword              // obj, endobj, R, null, Tj, { and } ...
)

// String returns the token type name
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	case TokenKeyword:
		return "Keyword"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte // decoded bytes for strings and names; hex digits for hex strings
	Pos   int64  // Position in stream
}

func (t *Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Pos)
}

// Lexer performs lexical analysis of PDF content. Whitespace and comments are
// skipped between tokens. Tokens handed back with Unread are delivered again,
// most recent first.
type Lexer struct {
	src    io.Reader
	reader *bufio.Reader
	pos    int64
	pushed []*Token
}

// NewLexer creates a new lexer. If r is an io.Seeker its current offset is
// taken as the starting position and Seek is available.
func NewLexer(r io.Reader) *Lexer {
	l := &Lexer{
		src:    r,
		reader: bufio.NewReader(r),
	}
	if s, ok := r.(io.Seeker); ok {
		if off, err := s.Seek(0, io.SeekCurrent); err == nil {
			l.pos = off
		}
	}
	return l
}

// Position returns the absolute offset of the next unread byte. Pushed-back
// tokens are not accounted for.
func (l *Lexer) Position() int64 {
	return l.pos
}

// Seek moves the cursor to an absolute offset. Any pushed-back tokens are
// discarded.
func (l *Lexer) Seek(offset int64) error {
	s, ok := l.src.(io.Seeker)
	if !ok {
		return errors.New("lexer source is not seekable")
	}
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", offset, err)
	}
	l.reader.Reset(l.src)
	l.pos = offset
	l.pushed = l.pushed[:0]
	return nil
}

// Unread pushes a token back so the next call to NextToken returns it.
func (l *Lexer) Unread(tok *Token) {
	l.pushed = append(l.pushed, tok)
}

// NextToken returns the next token from the input. At end of input it
// returns a TokenEOF token and a nil error.
func (l *Lexer) NextToken() (*Token, error) {
	if n := len(l.pushed); n > 0 {
		tok := l.pushed[n-1]
		l.pushed = l.pushed[:n-1]
		return tok, nil
	}

	if err := l.skipWhitespaceAndComments(); err != nil && err != io.EOF {
		return nil, err
	}

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	switch b {
	case '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: l.pos - 1}, nil
	case ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: l.pos - 1}, nil
	case '{', '}':
		l.readByte()
		return &Token{Type: TokenKeyword, Value: []byte{b}, Pos: l.pos - 1}, nil
	case '(':
		return l.readString()
	case '<':
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '<' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte{'<', '<'}, Pos: l.pos - 2}, nil
		}
		return l.readHexString()
	case '>':
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '>' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte{'>', '>'}, Pos: l.pos - 2}, nil
		}
		return nil, &ParseError{Construct: "token", Offset: l.pos, Err: errors.New("unexpected '>'")}
	case ')':
		return nil, &ParseError{Construct: "token", Offset: l.pos, Err: errors.New("unbalanced ')'")}
	case '/':
		return l.readName()
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}

	return l.readKeyword()
}

// NextIsStream reports whether the input continues with the keyword
// "stream" followed by CRLF or LF. On success the keyword and its end-of-line
// are consumed so the cursor rests on the first byte of stream data. A bare
// CR after the keyword is a structural error.
func (l *Lexer) NextIsStream() (bool, error) {
	if len(l.pushed) > 0 {
		return false, nil
	}
	if err := l.skipWhitespaceAndComments(); err != nil && err != io.EOF {
		return false, err
	}

	start := l.pos
	buf, _ := l.peekN(8)
	if !bytes.HasPrefix(buf, []byte("stream")) {
		return false, nil
	}

	rest := buf[len("stream"):]
	skip := 0
	switch {
	case len(rest) >= 1 && rest[0] == '\n':
		skip = 7
	case len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n':
		skip = 8
	case len(rest) >= 1 && rest[0] == '\r':
		return false, &ParseError{Construct: "stream", Offset: start, Err: errors.New("stream keyword followed by a bare CR")}
	case len(rest) == 0 || !isRegular(rest[0]):
		return false, &ParseError{Construct: "stream", Offset: start, Err: errors.New("stream keyword must be followed by CRLF or LF")}
	default:
		// a longer identifier that merely starts with "stream"
		return false, nil
	}

	if err := l.SkipBytes(skip); err != nil {
		return false, err
	}
	return true, nil
}

// readByte reads a single byte and advances position
func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

// peek looks at the next byte without consuming it
func (l *Lexer) peek() (byte, error) {
	bytes, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return bytes[0], nil
}

// peekN looks at the next n bytes without consuming them
func (l *Lexer) peekN(n int) ([]byte, error) {
	return l.reader.Peek(n)
}

// skipWhitespaceAndComments skips whitespace and %-comments.
// PDF whitespace: space (0x20), tab (0x09), LF (0x0A), CR (0x0D), FF (0x0C), null (0x00)
func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		switch {
		case isWhitespace(b):
			l.readByte()
		case b == '%':
			for {
				b, err := l.readByte()
				if err != nil {
					return err
				}
				if b == '\n' || b == '\r' {
					break
				}
			}
		default:
			return nil
		}
	}
}

// readString reads a literal string (hello)
func (l *Lexer) readString() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer
	unterminated := func() error {
		return &ParseError{Construct: "string", Offset: startPos, Err: io.ErrUnexpectedEOF}
	}

	l.readByte() // (

	depth := 1
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, unterminated()
		}

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: startPos}, nil
			}
			buf.WriteByte(b)
		case '\\':
			next, err := l.readByte()
			if err != nil {
				return nil, unterminated()
			}
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r', '\n':
				// line splice
				if next == '\r' {
					if peek, err := l.peek(); err == nil && peek == '\n' {
						l.readByte()
					}
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// \ddd, value taken mod 256
				val := next - '0'
				for i := 0; i < 2; i++ {
					peek, err := l.peek()
					if err != nil || !isOctalDigit(peek) {
						break
					}
					d, _ := l.readByte()
					val = val*8 + (d - '0')
				}
				buf.WriteByte(val)
			default:
				// \( \) \\ and unknown escapes yield the character itself
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}
}

// readHexString reads a hexadecimal string <48656C6C6F>. Only hex digits are
// collected; an odd count is padded with a trailing zero nibble.
func (l *Lexer) readHexString() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // <

	for {
		b, err := l.readByte()
		if err != nil {
			return nil, &ParseError{Construct: "hex string", Offset: startPos, Err: io.ErrUnexpectedEOF}
		}
		if b == '>' {
			break
		}
		if isHexDigit(b) {
			buf.WriteByte(b)
		}
	}

	if buf.Len()%2 != 0 {
		buf.WriteByte('0')
	}
	return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: startPos}, nil
}

// readName reads a name object /Type
func (l *Lexer) readName() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // /

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(b) {
			break
		}
		l.readByte()

		// #xx escapes; a malformed escape is kept literally
		if b == '#' {
			if hex, err := l.peekN(2); err == nil && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				l.readByte()
				l.readByte()
				buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
				continue
			}
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: startPos}, nil
}

// readNumber reads an optionally signed number with at most one decimal
// point. Exponents are not part of the syntax.
func (l *Lexer) readNumber() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer
	hasDecimal := false

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if b == '.' {
			if hasDecimal {
				break
			}
			hasDecimal = true
		} else if !isDigit(b) && !(buf.Len() == 0 && (b == '-' || b == '+')) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	return &Token{Type: TokenNumber, Value: buf.Bytes(), Pos: startPos}, nil
}

// readKeyword reads a run of regular characters (true, null, R, obj, Tj, T*, ...)
func (l *Lexer) readKeyword() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	return &Token{Type: TokenKeyword, Value: buf.Bytes(), Pos: startPos}, nil
}

// ReadBytes reads exactly n bytes from the underlying reader.
// This is used for reading binary stream data. The buffer grows only with
// the bytes actually read.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative byte count %d", n)
	}
	var buf bytes.Buffer
	read, err := io.CopyN(&buf, l.reader, int64(n))
	l.pos += read
	if err != nil {
		if err != io.EOF {
			return buf.Bytes(), err
		}
		return buf.Bytes(), fmt.Errorf("expected %d bytes, got %d: %w", n, read, io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}

// SkipBytes skips exactly n bytes from the underlying reader
func (l *Lexer) SkipBytes(n int) error {
	skipped, err := l.reader.Discard(n)
	l.pos += int64(skipped)
	return err
}

// ReadInlineImage reads the binary data of an inline image after the ID
// operator, up to the whitespace-delimited EI operator. The EI keyword is
// consumed.
func (l *Lexer) ReadInlineImage() ([]byte, error) {
	startPos := l.pos
	if b, err := l.peek(); err == nil && isWhitespace(b) {
		l.readByte()
	}

	var data []byte
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, &ParseError{Construct: "inline image", Offset: startPos, Err: io.ErrUnexpectedEOF}
		}
		data = append(data, b)

		n := len(data)
		if n >= 3 && data[n-2] == 'E' && data[n-1] == 'I' && isWhitespace(data[n-3]) {
			next, err := l.peek()
			if err == io.EOF || (err == nil && !isRegular(next)) {
				return data[:n-3], nil
			}
		}
	}
}

// Helper functions

func isWhitespace(b byte) bool {
	// PDF whitespace: space, tab, LF, CR, FF, null
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
