package contentstream

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/logging"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
}

// String renders the operation in content stream syntax.
func (op Operation) String() string {
	var buf bytes.Buffer
	for _, o := range op.Operands {
		buf.WriteString(o.String())
		buf.WriteByte(' ')
	}
	buf.WriteString(op.Operator)
	return buf.String()
}

// Parser parses PDF content streams into a sequence of operations.
// Each operation consists of an operator and its operands.
type Parser struct {
	p *core.Parser
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{p: core.NewParser(bytes.NewReader(data))}
}

// Parse is a shorthand for NewParser(data).Parse().
func Parse(data []byte) ([]Operation, error) {
	return NewParser(data).Parse()
}

// Parse parses the content stream and returns all operations in order.
// Bare keywords are operators except true and false, which are operands.
// An inline image (BI ... ID data EI) becomes one BI operation whose
// operands are the image dictionary followed by the raw data as a String.
// On a syntax error the operations parsed so far are returned with it.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	var operands []core.Object

	for {
		obj, err := p.p.ParseObject()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ops, fmt.Errorf("content stream: %w", err)
		}

		id, ok := obj.(core.Identifier)
		if !ok || id == "true" || id == "false" {
			operands = append(operands, obj)
			continue
		}

		if id == "BI" {
			op, err := p.inlineImage()
			if err != nil {
				return ops, fmt.Errorf("content stream: %w", err)
			}
			ops = append(ops, op)
			operands = nil
			continue
		}

		ops = append(ops, Operation{Operator: string(id), Operands: operands})
		operands = nil
	}

	if len(operands) > 0 {
		logging.Logger().Debug("content stream ends with dangling operands", "count", len(operands))
	}
	return ops, nil
}

// inlineImage reads the key/value pairs after BI up to ID, then the raw
// image data up to EI.
func (p *Parser) inlineImage() (Operation, error) {
	dict := core.NewDict()
	for {
		obj, err := p.p.ParseObject()
		if err == io.EOF {
			return Operation{}, fmt.Errorf("inline image: missing ID")
		}
		if err != nil {
			return Operation{}, fmt.Errorf("inline image: %w", err)
		}
		if id, ok := obj.(core.Identifier); ok && id == "ID" {
			break
		}

		key, ok := obj.(core.Name)
		if !ok {
			return Operation{}, fmt.Errorf("inline image: key is %s, want a name", obj.Type())
		}
		value, err := p.p.ParseObject()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image: value for /%s: %w", key, err)
		}
		dict.Set(string(key), value)
	}

	data, err := p.p.ReadInlineImage()
	if err != nil {
		return Operation{}, err
	}
	return Operation{Operator: "BI", Operands: []core.Object{dict, core.String(data)}}, nil
}
