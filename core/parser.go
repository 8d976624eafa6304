package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxStreamLength is the largest /Length accepted.
const maxStreamLength = math.MaxInt32

// ReferenceResolver resolves indirect references encountered while parsing,
// such as a stream /Length stored as a separate object.
type ReferenceResolver interface {
	ResolveReference(ref Reference) (Object, error)
}

// Parser builds objects from the token stream of a Lexer.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver
}

// NewParser creates a new parser over r. Seek requires r to be an
// io.ReadSeeker.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Lexer returns the underlying lexer.
func (p *Parser) Lexer() *Lexer {
	return p.lexer
}

// Seek moves the parser to an absolute offset.
func (p *Parser) Seek(offset int64) error {
	return p.lexer.Seek(offset)
}

// ParseObject parses the next object. It returns io.EOF when the input is
// exhausted before an object starts. Bare keywords other than null come back
// as Identifier; "N G obj ... endobj" comes back as *IndirectObject.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenNumber:
		return p.parseNumberOrReference(tok)

	case TokenString:
		return String(tok.Value), nil

	case TokenHexString:
		decoded, err := hex.DecodeString(string(tok.Value))
		if err != nil {
			return nil, &ParseError{Construct: "hex string", Offset: tok.Pos, Err: err}
		}
		return HexString(decoded), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray(tok.Pos)

	case TokenDictStart:
		dict, err := p.parseDict(tok.Pos)
		if err != nil {
			return nil, err
		}
		isStream, err := p.lexer.NextIsStream()
		if err != nil {
			return nil, err
		}
		if isStream {
			return p.parseStreamBody(dict, tok.Pos)
		}
		return dict, nil

	case TokenKeyword:
		if string(tok.Value) == "null" {
			return Null{}, nil
		}
		return Identifier(tok.Value), nil

	default:
		return nil, &ParseError{Construct: "object", Offset: tok.Pos, Err: fmt.Errorf("unexpected %s", tok.Type)}
	}
}

// ParseIndirectObject parses an object at the current position and requires
// it to be an "N G obj ... endobj" definition.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	pos := p.lexer.Position()
	obj, err := p.ParseObject()
	if err == io.EOF {
		return nil, &ParseError{Construct: "indirect object", Offset: pos, Err: io.ErrUnexpectedEOF}
	}
	if err != nil {
		return nil, err
	}
	ind, ok := obj.(*IndirectObject)
	if !ok {
		return nil, &ParseError{Construct: "indirect object", Offset: pos, Err: fmt.Errorf("found %s", obj.Type())}
	}
	return ind, nil
}

// parseNumberOrReference looks two tokens ahead of a number. "N G R" is a
// Reference, "N G obj" starts an indirect object; anything else pushes the
// lookahead back and yields a plain Number.
func (p *Parser) parseNumberOrReference(first *Token) (Object, error) {
	num, err := parseNumber(first)
	if err != nil {
		return nil, err
	}

	second, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if second.Type == TokenNumber {
		third, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if third.Type == TokenKeyword && isInteger(first) && isInteger(second) {
			gen, err := parseNumber(second)
			if err != nil {
				return nil, err
			}
			switch string(third.Value) {
			case "R":
				return Reference{Number: num.Int(), Generation: gen.Int()}, nil
			case "obj":
				return p.parseIndirectBody(num.Int(), gen.Int(), first.Pos)
			}
		}
		p.lexer.Unread(third)
	}
	p.lexer.Unread(second)

	return num, nil
}

func (p *Parser) parseIndirectBody(number, generation int, pos int64) (*IndirectObject, error) {
	obj, err := p.ParseObject()
	if err == io.EOF {
		return nil, &ParseError{Construct: "indirect object", Offset: pos, Err: io.ErrUnexpectedEOF}
	}
	if err != nil {
		return nil, err
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		return nil, &ParseError{
			Construct: "indirect object",
			Offset:    tok.Pos,
			Err:       fmt.Errorf("object %d %d: expected endobj, found %s", number, generation, tok),
		}
	}

	return &IndirectObject{Number: number, Generation: generation, Object: obj}, nil
}

// parseArray parses the elements after '['
func (p *Parser) parseArray(pos int64) (Array, error) {
	arr := Array{}

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenEOF:
			return nil, &ParseError{Construct: "array", Offset: pos, Err: io.ErrUnexpectedEOF}
		case TokenArrayEnd:
			return arr, nil
		}
		p.lexer.Unread(tok)

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDict parses the key/value pairs after '<<'
func (p *Parser) parseDict(pos int64) (*Dict, error) {
	dict := NewDict()

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenEOF:
			return nil, &ParseError{Construct: "dictionary", Offset: pos, Err: io.ErrUnexpectedEOF}
		case TokenDictEnd:
			return dict, nil
		case TokenName:
		default:
			return nil, &ParseError{Construct: "dictionary", Offset: tok.Pos, Err: fmt.Errorf("expected name key, found %s", tok)}
		}

		value, err := p.ParseObject()
		if err == io.EOF {
			return nil, &ParseError{Construct: "dictionary", Offset: pos, Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			return nil, err
		}
		dict.Set(string(tok.Value), value)
	}
}

// parseStreamBody reads exactly /Length bytes after the stream keyword and
// requires endstream to follow.
func (p *Parser) parseStreamBody(dict *Dict, pos int64) (*Stream, error) {
	length, err := p.streamLength(dict, pos)
	if err != nil {
		return nil, err
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, &ParseError{Construct: "stream", Offset: pos, Err: err}
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		return nil, &ParseError{Construct: "stream", Offset: tok.Pos, Err: fmt.Errorf("expected endstream after %d bytes, found %s", length, tok)}
	}

	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict *Dict, pos int64) (int, error) {
	value := dict.Get("Length")
	if ref, ok := value.(Reference); ok {
		if p.resolver == nil {
			return 0, &ParseError{Construct: "stream", Offset: pos, Err: fmt.Errorf("indirect /Length %s with no resolver", ref)}
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("resolving stream length %s: %w", ref, err)
		}
		value = resolved
	}

	n, ok := value.(Number)
	if !ok {
		return 0, &ParseError{Construct: "stream", Offset: pos, Err: fmt.Errorf("/Length is %s, want a number", objectString(value))}
	}
	if n < 0 {
		return 0, &ParseError{Construct: "stream", Offset: pos, Err: errors.New("negative /Length")}
	}
	if n > maxStreamLength {
		return 0, &ParseError{Construct: "stream", Offset: pos, Err: fmt.Errorf("/Length %s out of range", n)}
	}
	return n.Int(), nil
}

// ReadInlineImage reads inline image data following the ID operator.
func (p *Parser) ReadInlineImage() ([]byte, error) {
	return p.lexer.ReadInlineImage()
}

func parseNumber(tok *Token) (Number, error) {
	s := string(tok.Value)
	if s == "" || s == "-" || s == "+" || s == "." || s == "-." || s == "+." {
		return 0, &ParseError{Construct: "number", Offset: tok.Pos, Err: fmt.Errorf("malformed number %q", s)}
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Construct: "number", Offset: tok.Pos, Err: err}
	}
	return Number(v), nil
}

func isInteger(tok *Token) bool {
	return tok.Type == TokenNumber && !strings.ContainsRune(string(tok.Value), '.')
}
